package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/reusedev/tryon-hub/config"
	"github.com/reusedev/tryon-hub/internal/components/mysql"
	"github.com/reusedev/tryon-hub/internal/modules/logs"
	"github.com/reusedev/tryon-hub/internal/modules/model"
	"github.com/reusedev/tryon-hub/internal/modules/queue"
	"github.com/reusedev/tryon-hub/internal/service/http"
	"github.com/reusedev/tryon-hub/internal/service/http/handler"
)

var (
	httpPort   string
	configPath string
)

func init() {
	flag.StringVar(&httpPort, "http-port", ":80", "listen http port")
	flag.StringVar(&configPath, "config", "config.yml", "config file path")
}

func main() {
	flag.Parse()
	cfg, err := os.ReadFile(configPath)
	if err != nil {
		panic(err)
	}
	config.Init(cfg)
	logs.InitLogger()
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	queue.InitRecordQueue(ctx, wg)
	if config.GConfig.HistoryEnabled() {
		mysql.CreateDataBase(config.GConfig.MySQL)
		mysql.InitMySQL(config.GConfig.MySQL)
		mysql.DB.AutoMigrate(&model.Task{}, &model.UpstreamInvokeHistory{})
	}
	handler.Init(ctx)
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
	go func(ch chan os.Signal) {
		<-ch
		cancel()
		wg.Wait()
		os.Exit(0)
	}(osSignal)
	http.Serve(httpPort)
}
