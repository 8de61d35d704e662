package logger

import (
	"fmt"
	"math/rand"
	"os"
	"runtime/debug"
	"strings"

	"github.com/Meesho/BharatMLStack/batchinfer/pkg/configs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var applicationName = ""

func InitLogger(configs *configs.AppConfigs) {
	applicationName = configs.Configs.ApplicationName
	setLogLevel(strings.ToUpper(configs.Configs.ApplicationLogLevel))

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05.000",
	}).With().Str("app", applicationName).Caller().Logger()

	// [file::line] instead of the full path
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		parts := strings.Split(file, "/")
		return fmt.Sprintf("[%s::%d]", parts[len(parts)-1], line)
	}
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		return fmt.Sprintf("%s\n%s", err, debug.Stack())
	}
	Info("Logger initialized!")
}

func setLogLevel(logLevel string) {
	switch logLevel {
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "INFO":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "WARN":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "FATAL":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "PANIC":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	case "DISABLED":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		Panic(fmt.Sprintf("Incorrect log level %s", logLevel), nil)
	}
}

func Info(message string) {
	log.Info().Msg(message)
}

func Error(message string, err error) {
	log.Error().Err(err).Msg(message)
}

// PercentError logs roughly loggingPercent out of every hundred calls. A zero
// percentage falls back to 10.
func PercentError(message string, err error, loggingPercent int) {
	if loggingPercent == 0 {
		loggingPercent = 10
	}
	if rand.Intn(100)+1 <= loggingPercent {
		log.Error().Err(err).Msg(message)
	}
}

func Panic(message string, err error) {
	log.Panic().Err(err).Msg(message)
}
