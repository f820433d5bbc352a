package logger

import (
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	slog *zap.SugaredLogger
	once sync.Once
)

type Config struct {
	Level      string // debug/info/warn/error
	FileName   string // 日志文件路径，为空只输出到控制台
	TimeFormat string
	MaxSize    int // 单个文件最大MB
	MaxBackups int
	MaxAge     int // 保留天数
	Compress   bool
	LocalTime  bool
	Console    bool // 是否同时输出到控制台
}

// Init 初始化全局logger，重复调用只生效一次
func Init(cfg Config) {
	once.Do(func() {
		log = build(cfg)
		slog = log.Sugar()
	})
}

func build(cfg Config) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	if cfg.TimeFormat != "" {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(cfg.TimeFormat)
	} else {
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var cores []zapcore.Core
	if cfg.FileName != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FileName,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  cfg.LocalTime,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, level))
	}
	if cfg.Console || cfg.FileName == "" {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

func l() *zap.Logger {
	if log == nil {
		Init(Config{Level: "info", Console: true})
	}
	return log
}

// Pair 构造一个结构化日志字段
func Pair(key string, value any) zap.Field {
	return zap.Any(key, value)
}

func Debug(msg string, fields ...zap.Field) { l().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { l().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { l().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { l().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { l().Fatal(msg, fields...) }

func Debugf(format string, args ...any) { l(); slog.Debugf(format, args...) }
func Infof(format string, args ...any)  { l(); slog.Infof(format, args...) }
func Warnf(format string, args ...any)  { l(); slog.Warnf(format, args...) }
func Errorf(format string, args ...any) { l(); slog.Errorf(format, args...) }

// Sync 刷新缓冲日志，进程退出前调用
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
