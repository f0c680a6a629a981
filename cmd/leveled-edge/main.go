// Command leveled-edge watches a GPIO line with level-triggered interrupts and
// publishes debounced level changes (or rotary encoder turns) to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sweeney/leveled-edge/internal/debounce"
	"github.com/sweeney/leveled-edge/internal/edge"
	"github.com/sweeney/leveled-edge/internal/gpio"
	"github.com/sweeney/leveled-edge/internal/mqtt"
	"github.com/sweeney/leveled-edge/internal/rotary"
	"github.com/sweeney/leveled-edge/internal/status"
	"github.com/sweeney/leveled-edge/internal/web"
)

// config is the parsed command line.
type config struct {
	name       string
	driver     string
	chip       string
	line       int
	pin        string
	encoderDT  string
	bias       string
	filter     string
	debounce   time.Duration
	retrigger  time.Duration
	heartbeat  time.Duration
	broker     string
	httpAddr   string
	wsBroker   string
	queue      int
	printState bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.name, "name", "button", "Line name used in topics and logs")
	flag.StringVar(&cfg.driver, "driver", "cdev", `GPIO driver: "cdev" (Linux character device) or "periph"`)
	flag.StringVar(&cfg.chip, "chip", "gpiochip0", "GPIO chip (cdev driver)")
	flag.IntVar(&cfg.line, "line", 17, "Line offset on the chip (cdev driver)")
	flag.StringVar(&cfg.pin, "pin", "GPIO17", "Pin name (periph driver)")
	flag.StringVar(&cfg.encoderDT, "encoder-dt", "-1", "DT line of a rotary encoder (offset or pin name); -1 watches a plain level")
	flag.StringVar(&cfg.bias, "bias", "down", `Input bias: "up", "down" or "none"`)
	flag.StringVar(&cfg.filter, "filter", "window", `Debounce filter: "window", "holdoff" or "none"`)
	flag.DurationVar(&cfg.debounce, "debounce", 20*time.Millisecond, "Debounce duration")
	flag.DurationVar(&cfg.retrigger, "retrigger", gpio.DefaultRetrigger, "Re-raise interval while the armed level is held")
	flag.DurationVar(&cfg.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&cfg.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&cfg.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	flag.IntVar(&cfg.queue, "queue", 256, "Events buffered between the interrupt handler and the publisher")
	flag.BoolVar(&cfg.printState, "print-state", false, "Print current level and exit")

	flag.Parse()

	cfg.wsBroker = resolveWSBroker(*wsBroker, cfg.broker)
	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// inputPin is a pin the daemon owns and must close.
type inputPin interface {
	gpio.Pin
	io.Closer
}

func (c config) rotary() bool {
	return c.encoderDT != "" && c.encoderDT != "-1"
}

func (c config) lineLabel() string {
	if c.driver == "periph" {
		return c.pin
	}
	return strconv.Itoa(c.line)
}

func (c config) statusConfig() status.Config {
	mode := "level"
	if c.rotary() {
		mode = "rotary"
	}
	chip := ""
	if c.driver == "cdev" {
		chip = c.chip
	}
	return status.Config{
		Mode:        mode,
		Driver:      c.driver,
		Chip:        chip,
		Line:        c.lineLabel(),
		Bias:        gpio.ParseBias(c.bias).String(),
		DebounceMs:  c.debounce.Milliseconds(),
		RetriggerMs: c.retrigger.Milliseconds(),
		HeartbeatMs: c.heartbeat.Milliseconds(),
		Broker:      c.broker,
		HTTPAddr:    c.httpAddr,
		WSBroker:    c.wsBroker,
	}
}

// openPin opens a line by cdev offset or periph name, depending on the driver.
func openPin(cfg config, cdevLine int, periphName string) (inputPin, error) {
	opts := []gpio.Option{
		gpio.WithBias(gpio.ParseBias(cfg.bias)),
		gpio.WithRetrigger(cfg.retrigger),
		gpio.WithConsumer("leveled-edge-" + cfg.name),
	}
	switch cfg.driver {
	case "cdev":
		return gpio.NewCdevPin(cfg.chip, cdevLine, opts...)
	case "periph":
		return gpio.OpenPeriphPin(periphName, opts...)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.driver)
	}
}

func openDT(cfg config) (inputPin, error) {
	if cfg.driver == "periph" {
		return openPin(cfg, 0, cfg.encoderDT)
	}
	offset, err := strconv.Atoi(cfg.encoderDT)
	if err != nil {
		return nil, fmt.Errorf("encoder-dt %q: %w", cfg.encoderDT, err)
	}
	return openPin(cfg, offset, "")
}

func newFilter(cfg config) (debounce.Filter, error) {
	switch cfg.filter {
	case "window":
		return debounce.NewWindow(cfg.debounce), nil
	case "holdoff":
		return debounce.NewHoldoff(cfg.debounce), nil
	case "none":
		return debounce.NewNone(), nil
	default:
		return nil, fmt.Errorf("unknown filter %q", cfg.filter)
	}
}

func run(cfg config) error {
	pin, err := openPin(cfg, cfg.line, cfg.pin)
	if err != nil {
		return fmt.Errorf("open %s line %s: %w", cfg.driver, cfg.lineLabel(), err)
	}
	defer pin.Close()

	// Print state mode
	if cfg.printState {
		if err := pin.SetInput(); err != nil {
			return fmt.Errorf("configure input: %w", err)
		}
		level, err := pin.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("%s: %s\n", cfg.name, level)
		return nil
	}

	filter, err := newFilter(cfg)
	if err != nil {
		return err
	}

	tracker := status.NewTracker(cfg.name, time.Now(), cfg.statusConfig())
	q := newQueue(cfg.name, cfg.queue, time.Now)

	src := source{drops: q.Drops}
	if cfg.rotary() {
		dt, err := openDT(cfg)
		if err != nil {
			return fmt.Errorf("open encoder dt: %w", err)
		}
		defer dt.Close()

		enc, err := rotary.New(pin, dt, rotary.WithFilter(filter), rotary.WithQueue(cfg.queue))
		if err != nil {
			return fmt.Errorf("start encoder: %w", err)
		}
		defer closeLogged("encoder", enc)
		src.ctrl = enc.Controller()
		src.dirs = enc.Directions()
		src.drops = func() uint64 { return uint64(enc.Drops()) }
	} else {
		ctrl, err := edge.New(pin, filter, q)
		if err != nil {
			return fmt.Errorf("start controller: %w", err)
		}
		defer closeLogged("controller", ctrl)
		src.ctrl = ctrl
		src.events = q.Events()
	}
	tracker.Update(src.ctrl.Level(), src.ctrl.Trigger(), src.counts(0, 0))

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.broker, "leveled-edge-"+cfg.name, mqtt.DefaultBufferSize)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	log.Printf("started: %s line=%s driver=%s level=%s debounce=%v retrigger=%v broker=%s heartbeat=%v",
		cfg.name, cfg.lineLabel(), cfg.driver, src.ctrl.Level(), cfg.debounce, cfg.retrigger, cfg.broker, cfg.heartbeat)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		name:       cfg.name,
		src:        src,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		heartbeat:  cfg.heartbeat,
		now:        time.Now,
	}
	return l.run(ticker.C, sigCh)
}

func closeLogged(what string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Printf("%s: close: %v", what, err)
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
