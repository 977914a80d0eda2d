// Command flashctl inspects and maintains an existing device image: it
// replays the reserved region and logs the image's volume ID and geometry
// (it does not print individual mapping or signature entries), and it can
// force one garbage-collection pass or snapshot/restore the backing file
// atomically. Grounded on
// biscuit/src/mkfs/mkfs.go for its reserved-region bootstrap and on
// calvinalkan-agent-task's flag-driven single-purpose tool shape and
// natefinch/atomic usage.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/wondfs-go/flashfs/internal/blocktable"
	"github.com/wondfs-go/flashfs/internal/device"
	"github.com/wondfs-go/flashfs/internal/gc"
	"github.com/wondfs-go/flashfs/internal/metrics"
	"github.com/wondfs-go/flashfs/internal/translation"
)

func main() {
	var (
		image       = flag.StringP("image", "i", "", "path to the device image")
		totalBlocks = flag.Int("total-blocks", 256, "total physical block count (B), must match mkflash")
		useMax      = flag.Int("use-max", 200, "last user block number, inclusive, must match mkflash")
		snapshotTo  = flag.String("snapshot-to", "", "write an atomic copy of the image to this path")
		restoreFrom = flag.String("restore-from", "", "atomically restore the image from this path")
		runGC       = flag.Bool("gc", false, "generate and apply one forward GC plan")
		verbose     = flag.BoolP("verbose", "v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "flashctl")

	if *image == "" {
		fmt.Fprintln(os.Stderr, "flashctl: --image is required")
		os.Exit(1)
	}

	if *restoreFrom != "" {
		if err := restoreImage(*restoreFrom, *image); err != nil {
			log.WithError(err).Fatal("restore image")
		}
		log.WithFields(logrus.Fields{"from": *restoreFrom, "to": *image}).Info("restored device image")
	}

	dev, err := device.OpenFile(*image, *totalBlocks)
	if err != nil {
		log.WithError(err).Fatal("open device image")
	}
	defer dev.Close()

	bt := blocktable.New(*totalBlocks)
	met := metrics.NewSet(nil)
	tl := translation.New(translation.Config{TotalBlocks: *totalBlocks, UseMax: *useMax}, dev, bt, met)
	if err := tl.Replay(); err != nil {
		log.WithError(err).Fatal("replay device image")
	}

	id, _ := uuid.FromBytes(volumeIDSlice(tl))
	log.WithFields(logrus.Fields{
		"image":        *image,
		"volume_id":    id.String(),
		"total_blocks": *totalBlocks,
		"use_max":      *useMax,
	}).Info("inspected device image")

	if *runGC {
		mgr := gc.New(bt, *useMax, met)
		plan, err := mgr.GeneratePlan(gc.Forward)
		if err != nil {
			log.WithError(err).Fatal("generate GC plan")
		}
		if err := gc.Execute(plan, tl, bt, met); err != nil {
			log.WithError(err).Fatal("execute GC plan")
		}
		log.WithField("events", len(plan)).Info("applied GC plan")
	}

	if *snapshotTo != "" {
		if err := snapshotImage(*image, *snapshotTo); err != nil {
			log.WithError(err).Fatal("snapshot image")
		}
		log.WithFields(logrus.Fields{"from": *image, "to": *snapshotTo}).Info("snapshotted device image")
	}
}

// volumeIDSlice copies tl's fixed-size volume ID into a slice for
// uuid.FromBytes, which requires exactly 16 bytes.
func volumeIDSlice(tl *translation.TL) []byte {
	id := tl.VolumeID()
	return id[:]
}

// snapshotImage copies src's current contents to dst in one atomic write,
// so a reader never observes a partially-written snapshot.
func snapshotImage(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return atomic.WriteFile(dst, bytes.NewReader(data))
}

// restoreImage atomically overwrites dst with src's contents.
func restoreImage(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return err
	}
	return atomic.WriteFile(dst, &buf)
}
