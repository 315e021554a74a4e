package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/MeloQi/service"
	"github.com/common-nighthawk/go-figure"

	"github.com/deckcast/deckcast/capture"
	"github.com/deckcast/deckcast/log"
	"github.com/deckcast/deckcast/models"
	"github.com/deckcast/deckcast/routers"
)

var (
	gitCommitCode string
	buildDateTime string
)

type program struct {
	httpPort   int
	httpServer *http.Server
}

func (p *program) StopHTTP() (err error) {
	if p.httpServer == nil {
		err = fmt.Errorf("HTTP Server Not Found")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = p.httpServer.Shutdown(ctx); err != nil {
		return
	}
	return
}

func (p *program) StartHTTP() (err error) {
	p.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", p.httpPort),
		Handler:           routers.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	link := fmt.Sprintf("http://%s:%d", utils.LocalIP(), p.httpPort)
	log.Info("http server start -->", link)
	go func() {
		if err := p.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("start http server error: ", err)
		}
		log.Info("http server end")
	}()
	return
}

func (p *program) Start(s service.Service) (err error) {
	log.Info("********** START **********")
	if utils.IsPortInUse(p.httpPort) {
		err = fmt.Errorf("HTTP port[%d] In Use", p.httpPort)
		return
	}
	err = models.Init()
	if err != nil {
		return
	}
	err = routers.Init()
	if err != nil {
		return
	}
	p.StartHTTP()

	if !utils.Debug {
		log.Debug("log files -->", utils.LogDir())
		log.SetOutput(utils.GetLogWriter())
	}

	if !capture.Available() {
		log.Warn("screen capture is not available on this host")
	}

	go func() {
		for range routers.API.RestartChan {
			p.StopHTTP()
			utils.ReloadConf()
			p.StartHTTP()
		}
	}()

	interval := utils.Conf().Section("discovery").Key("background_interval_sec").MustInt(0)
	if interval > 0 {
		scanTimeout := utils.Conf().Section("discovery").Key("scan_timeout_sec").MustInt(5)
		go func() {
			log.Info("starting daemon for background discovery")
			for {
				if _, err := routers.API.Discovery().Scan(time.Duration(scanTimeout) * time.Second); err != nil {
					log.Error("background discovery err: ", err)
				}
				time.Sleep(time.Duration(interval) * time.Second)
			}
		}()
	}
	return
}

func (p *program) Stop(s service.Service) (err error) {
	defer log.Info("********** STOP **********")
	defer utils.CloseLogWriter()
	if routers.API != nil {
		routers.API.Manager().Shutdown()
	}
	p.StopHTTP()
	models.Close()
	return
}

func main() {
	flag.StringVar(&utils.FlagVarConfFile, "config", "", "configure file path")
	flag.Parse()
	tail := flag.Args()

	log.Info("git commit code: ", gitCommitCode)
	log.Info("build date: ", buildDateTime)
	routers.BuildVersion = fmt.Sprintf("%s.%s", routers.BuildVersion, gitCommitCode)
	routers.BuildDateTime = buildDateTime

	sec := utils.Conf().Section("service")
	svcConfig := &service.Config{
		Name:        sec.Key("name").MustString("Deckcast_Service"),
		DisplayName: sec.Key("display_name").MustString("Deckcast_Service"),
		Description: sec.Key("description").MustString("AirPlay screen mirroring backend"),
	}

	httpPort := utils.Conf().Section("http").Key("port").MustInt(10008)
	p := &program{
		httpPort: httpPort,
	}
	s, err := service.New(p, svcConfig)
	if err != nil {
		log.Error(err)
		utils.PauseExit()
	}
	if len(tail) > 0 {
		cmd := strings.ToLower(tail[0])
		if cmd == "install" || cmd == "stop" || cmd == "start" || cmd == "uninstall" {
			figure.NewFigure("Deckcast", "", false).Print()
			log.Info(svcConfig.Name, cmd, "...")
			if err = service.Control(s, cmd); err != nil {
				log.Error(err)
				utils.PauseExit()
			}
			log.Info(svcConfig.Name, cmd, "ok")
			return
		}
	}
	figure.NewFigure("Deckcast", "", false).Print()
	if err = s.Run(); err != nil {
		log.Error(err)
		utils.PauseExit()
	}
}
