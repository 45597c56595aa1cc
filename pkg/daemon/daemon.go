package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battoverlay/pkg/battery"
	"github.com/charlie0129/battoverlay/pkg/config"
	"github.com/charlie0129/battoverlay/pkg/events"
	"github.com/charlie0129/battoverlay/pkg/instance"
	"github.com/charlie0129/battoverlay/pkg/overlay"
)

const (
	recorderCapacity = 360
	// Instances normally report at least every 10s.
	recorderGap = 11 * time.Second
)

// Daemon owns one battery overlay bound to one instance channel.
type Daemon struct {
	conf     config.Config
	hub      *events.Hub
	widget   *overlay.Widget
	ch       instance.Channel
	sync     *battery.Sync
	recorder *TimeSeriesRecorder
}

// New wires the overlay to ch. The caller keeps ownership of conf.
func New(conf config.Config, ch instance.Channel) *Daemon {
	d := &Daemon{
		conf:     conf,
		hub:      events.NewHub(),
		ch:       ch,
		recorder: NewTimeSeriesRecorder(recorderCapacity, recorderGap),
	}

	d.widget = overlay.New(d.hub, conf.Labels(), conf.Toolbar())
	if !conf.Toolbar() {
		logrus.Info("host has no toolbar, battery button not created")
	}

	ch.RegisterEventCallback(instance.BatteryChannel, func(string) {
		d.recorder.AddRecordNow()
	})
	d.sync = battery.New(ch, d.widget, battery.Options{
		DefaultLevel: conf.DefaultLevel(),
		Throttle:     conf.SendThrottle(),
	})

	return d
}

func (d *Daemon) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/state", d.getState)
	router.PUT("/level", d.setLevel)
	router.PUT("/level/preview", d.previewLevel)
	router.PUT("/charging", d.setCharging)
	router.POST("/widget/toggle", d.toggleWidget)
	router.GET("/events", d.streamEvents)
	router.GET("/telemetry", d.getTelemetry)
	router.GET("/config", d.getConfig)
	router.GET("/version", getVersion)

	return router
}

// Reload re-reads the config and applies the parts that can change live.
func (d *Daemon) Reload() error {
	if err := d.conf.Load(); err != nil {
		return err
	}
	d.widget.SetLabels(d.conf.Labels())
	d.sync.SetThrottle(d.conf.SendThrottle())
	return nil
}

// Close stops the overlay and closes the instance channel.
func (d *Daemon) Close() error {
	d.sync.Close()
	d.hub.Close()
	return d.ch.Close()
}

func listen(unixSocketPath, listenAddr string, allowNonRoot bool) (net.Listener, error) {
	if listenAddr != "" {
		l, err := net.Listen("tcp", listenAddr)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to listen on %s", listenAddr)
		}
		return l, nil
	}

	// A stale socket from a crashed daemon would make Listen fail.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		return nil, pkgerrors.Wrapf(err, "failed to remove stale socket %s", unixSocketPath)
	}

	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to listen on %s", unixSocketPath)
	}

	if allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		if err := os.Chmod(unixSocketPath, 0777); err != nil {
			_ = l.Close()
			return nil, pkgerrors.Wrapf(err, "failed to chmod %s", unixSocketPath)
		}
	}

	return l, nil
}

// Run loads the config, connects to the instance and serves the overlay
// API until SIGINT or SIGTERM. listenAddr, if set, takes precedence over
// the config file and the unix socket.
func Run(configPath string, unixSocketPath string, listenAddr string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	if listenAddr == "" {
		listenAddr = conf.ListenAddr()
	}

	ch, err := instance.New(conf.Transport())
	if err != nil {
		return pkgerrors.Wrap(err, "failed to open instance channel")
	}

	d := New(conf, ch)

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := d.Reload()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	l, err := listen(unixSocketPath, listenAddr, allowNonRoot)
	if err != nil {
		_ = d.Close()
		return err
	}

	srv := &http.Server{
		Handler:           d.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigc:
		logrus.Infof("caught signal \"%s\": shutting down.", sig)
	case err := <-serveErr:
		logrus.Errorf("http server failed: %v", err)
	}

	// Close the hub first so open SSE streams end and Shutdown can finish.
	logrus.Info("closing instance channel")
	if err := d.Close(); err != nil {
		logrus.Errorf("failed to close instance channel: %v", err)
	}

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("exiting")
	return nil
}
