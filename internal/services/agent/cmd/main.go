package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenprotect/fieldops/internal/services/agent"
	"github.com/greenprotect/fieldops/pkg/mqttbus"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := envStr("CONFIG_PATH", "/app/config/fields.yaml")
	cfg, err := agent.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("agent: config: %v", err)
	}

	busCfg := &mqttbus.Config{
		Host:     envStr("MQTT_HOST", "localhost"),
		Port:     envInt("MQTT_PORT", 1883),
		User:     envStr("MQTT_USER", "guest"),
		Password: envStr("MQTT_PASSWORD", "guest"),
		ClientID: fmt.Sprintf("FieldAgent-%s", envStr("HOSTNAME", "local")),
	}
	client, err := mqttbus.NewConn(ctx, busCfg)
	if err != nil {
		log.Fatalf("agent: mqtt connect: %v", err)
	}
	defer mqttbus.CloseConn(client)

	factory := func(topic string) mqttbus.IPublisher {
		return mqttbus.NewPublisher(client, topic)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := agent.NewMetrics(reg)

	svc, err := agent.NewService(cfg, factory, agent.Options{
		StateTopicTmpl:     envStr("STATE_TOPIC_TMPL", "event/StateChange/{field}/{device}"),
		SprayTopicTmpl:     envStr("SPRAY_TOPIC_TMPL", "event/sprayResult/{field}/{device}"),
		ScanTopicTmpl:      envStr("SCAN_TOPIC_TMPL", "event/scanResult/{field}/{device}"),
		TelemetryTopicTmpl: envStr("TELEMETRY_TOPIC_TMPL", "telemetry/levels/{field}/{device}"),
	}, metrics)
	if err != nil {
		log.Fatalf("agent: init: %v", err)
	}

	go svc.RunTelemetry(ctx, time.Duration(envInt("TELEMETRY_INTERVAL_S", 30))*time.Second)

	mux := agent.NewHTTPMux(svc)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	port := envInt("HTTP_PORT", 8080)
	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("agent: HTTP listening on :%d (fields=%d)", port, len(cfg.Fields))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("agent: http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("agent: shutting down...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = hs.Shutdown(shCtx)
}
