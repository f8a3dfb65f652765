// Command rvdas acquires raw telemetry lines from one instrument transport,
// parses them against a device-type definition from the catalog, and fans the
// results out to the record store and the raw-line logfile.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/OceanDataTools/openrvdas-contrib/internal/catalog"
	"github.com/OceanDataTools/openrvdas-contrib/internal/feed"
	"github.com/OceanDataTools/openrvdas-contrib/internal/sentence"
	"github.com/OceanDataTools/openrvdas-contrib/internal/store"
	"github.com/OceanDataTools/openrvdas-contrib/internal/transform"
)

var (
	deviceName  = flag.String("device", "", "Device type name from the catalog (required)")
	catalogPath = flag.String("catalog", "", "Device catalog YAML (default: built-in catalog)")
	skipInvalid = flag.Bool("skip-invalid", false, "Skip catalog entries that fail to load instead of aborting")

	serialPort = flag.String("port", "", "Serial port to read from (e.g. /dev/ttyUSB0)")
	baudRate   = flag.Int("baud", 9600, "Serial baud rate")
	udpAddr    = flag.String("udp", "", "UDP listen address (e.g. :55001)")
	mqttBroker = flag.String("mqtt-broker", "", "MQTT broker URL (e.g. tcp://localhost:1883)")
	mqttTopic  = flag.String("mqtt-topic", "", "MQTT topic carrying raw lines")
	fixtures   = flag.String("dev", "", "Replay lines from a fixtures file instead of hardware")

	dbPath       = flag.String("db", "telemetry.db", "Path to the sqlite record store")
	logFile      = flag.String("logfile", "", "Raw-line logfile path (empty: no raw logging)")
	splitByDate  = flag.Bool("split-by-date", false, "Start a new raw logfile each UTC day")
	netcdfBase   = flag.String("netcdf", "", "NetCDF archive filebase (empty: no NetCDF archiving)")
	netcdfHourly = flag.Bool("netcdf-hourly", false, "Roll NetCDF archive files hourly instead of daily")
)

func main() {
	flag.Parse()

	if *deviceName == "" {
		log.Fatal("-device is required")
	}

	var (
		cat *catalog.Catalog
		err error
	)
	if *catalogPath != "" {
		cat, err = catalog.LoadFile(*catalogPath, catalog.Options{SkipInvalid: *skipInvalid})
	} else {
		cat, err = catalog.Builtin()
	}
	if err != nil {
		log.Fatalf("failed to load device catalog: %v", err)
	}

	dev, ok := cat.Device(*deviceName)
	if !ok {
		log.Fatalf("device %q not in catalog (have: %v)", *deviceName, cat.Names())
	}

	src, err := openSource()
	if err != nil {
		log.Fatalf("failed to open line source: %v", err)
	}
	mux := feed.NewMux(src)
	defer mux.Close()

	db, err := store.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open record store: %v", err)
	}
	defer db.Close()

	var rawLog *store.TextWriter
	if *logFile != "" {
		rawLog, err = store.NewTextWriter(*logFile, *splitByDate)
		if err != nil {
			log.Fatalf("failed to open raw logfile: %v", err)
		}
		defer rawLog.Close()
	}

	var ncArchive *store.NetCDFWriter
	if *netcdfBase != "" {
		rollover := store.DailyRollover
		if *netcdfHourly {
			rollover = store.HourlyRollover
		}
		ncArchive, err = store.NewNetCDFWriter(*netcdfBase, rollover)
		if err != nil {
			log.Fatalf("failed to open NetCDF archive: %v", err)
		}
		defer ncArchive.Close()
	}

	bounds := transform.NewMaxMin()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// monitor routine: drive the transport and fan lines out
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("feed monitor failed: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscriber routine: parse each line and route the record
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, lines := mux.Subscribe()
		defer mux.Unsubscribe(id)
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					return
				}
				handleLine(dev, db, rawLog, ncArchive, bounds, line)
			case <-ctx.Done():
				log.Print("subscriber routine terminated")
				return
			}
		}
	}()

	wg.Wait()
	log.Print("shutdown complete")
}

// openSource picks the transport from the flags, in fixture > serial > UDP >
// MQTT order.
func openSource() (feed.Source, error) {
	switch {
	case *fixtures != "":
		data, err := os.ReadFile(*fixtures)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixtures file: %w", err)
		}
		return feed.NewMockSource(data), nil
	case *serialPort != "":
		return feed.OpenSerial(*serialPort, feed.SerialConfig{BaudRate: *baudRate})
	case *udpAddr != "":
		return feed.ListenUDP(*udpAddr)
	case *mqttBroker != "":
		return feed.NewMQTTSource(feed.MQTTConfig{
			Broker: *mqttBroker,
			Topic:  *mqttTopic,
		}), nil
	}
	return nil, errors.New("no transport configured: set -port, -udp, -mqtt-broker or -dev")
}

// handleLine routes one raw line: log it verbatim, parse it, persist the
// record, archive it, and report any new max/min bounds.
func handleLine(dev *catalog.Device, db *store.DB, rawLog *store.TextWriter, ncArchive *store.NetCDFWriter, bounds *transform.MaxMin, line string) {
	if rawLog != nil {
		if err := rawLog.Write(line); err != nil {
			log.Printf("failed to log raw line: %v", err)
		}
	}

	rec, err := dev.Parse(line)
	if errors.Is(err, sentence.ErrNoMatch) {
		// expected on multiplexed feeds; not worth more than a note
		log.Printf("unparseable line for %s: %q", dev.Name, line)
		return
	}
	if err != nil {
		log.Printf("parse failed: %v", err)
		return
	}

	if rec.ChecksumValid != nil && !*rec.ChecksumValid {
		log.Printf("checksum mismatch on %s line %q", dev.Name, line)
	}

	if err := db.RecordParsed(dev.Name, rec); err != nil {
		log.Printf("failed to record fields: %v", err)
	}

	if ncArchive != nil {
		if err := ncArchive.WriteRecord(time.Now(), rec.Fields); err != nil {
			log.Printf("failed to archive record: %v", err)
		}
	}

	if changed := bounds.Update(rec.Fields); changed != nil {
		log.Printf("new bounds for %s: %v", dev.Name, changed)
	}
}
