package db

import (
	"fmt"

	"gorm.io/gorm/logger"
)

// ParseGormLogLevel maps info, warn, error or silent to a gorm log level.
func ParseGormLogLevel(level string) (logger.LogLevel, error) {
	switch level {
	case "info":
		return logger.Info, nil
	case "warn":
		return logger.Warn, nil
	case "error":
		return logger.Error, nil
	case "silent":
		return logger.Silent, nil
	}
	return logger.Info, fmt.Errorf("unknown gorm log level: %s", level)
}
