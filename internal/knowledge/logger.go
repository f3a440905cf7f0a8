package knowledge

import "finsight/internal/logger"

var log = logger.Named("knowledge")
