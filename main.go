package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/yamar8/lovetree-backend/app"
	"github.com/yamar8/lovetree-backend/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var configPath = pflag.String("config", "", "Path to the config file, defaults to ./config.toml")

func main() {
	pflag.Parse()
	gin.SetMode(gin.ReleaseMode)

	// Config validation logs through zap already
	app.MakeLogger("info")

	err := config.Setup(*configPath)
	if err != nil {
		panic(err)
	}

	app.MakeLogger(viper.GetString("app.log_level"))
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router, err := app.NewRouter(ctx)
	if err != nil {
		panic(err)
	}

	addr := fmt.Sprintf(":%d", viper.GetInt("host.port"))
	zap.L().Info("Server starting", zap.String("addr", addr), zap.String("domain", viper.GetString("host.domain")))

	if viper.GetBool("host.ssl.enabled") {
		err = router.RunTLS(addr, viper.GetString("host.ssl.certificate_path"), viper.GetString("host.ssl.certificate_key_path"))
	} else {
		err = router.Run(addr)
	}

	if err != nil {
		panic(err)
	}
}
