package main

import "finsight/internal/logger"

var log = logger.Named("cli")
