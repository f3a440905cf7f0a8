package tui

import "finsight/internal/logger"

var log = logger.Named("tui")
