package main

import (
	"fmt"

	"github.com/Meesho/BharatMLStack/batchinfer/handlers/echo"
	"github.com/Meesho/BharatMLStack/batchinfer/internal/server"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/configs"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/logger"
	"github.com/Meesho/BharatMLStack/batchinfer/pkg/metrics"
	"github.com/spf13/viper"
	_ "go.uber.org/automaxprocs"
)

var AppConfigs configs.AppConfigs

func main() {
	viper.AutomaticEnv()
	viper.SetConfigName("application")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No application.env found, reading configuration from environment")
	}
	if err := configs.InitConfig(&AppConfigs); err != nil {
		panic(err)
	}
	logger.InitLogger(&AppConfigs)
	metrics.InitMetrics(&AppConfigs)
	server.InitServer(&AppConfigs, echo.InitEchoHandler(&AppConfigs))
}
