// Command mkflash formats a device image: it sizes the backing file, writes
// an empty mapping block stamped with a fresh volume ID, and writes an empty
// signature block, following biscuit/src/mkfs/mkfs.go's bootstrap shape
// restructured around this stack's reserved-region layout instead of a
// log+inode+freemap one.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/wondfs-go/flashfs/internal/blocktable"
	"github.com/wondfs-go/flashfs/internal/device"
	"github.com/wondfs-go/flashfs/internal/metrics"
	"github.com/wondfs-go/flashfs/internal/translation"
)

func main() {
	var (
		output      = flag.StringP("output", "o", "", "path to the device image to create")
		totalBlocks = flag.Int("total-blocks", 256, "total physical block count (B)")
		useMax      = flag.Int("use-max", 200, "last user block number, inclusive")
		verbose     = flag.BoolP("verbose", "v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "mkflash")

	if *output == "" {
		fmt.Fprintln(os.Stderr, "mkflash: --output is required")
		os.Exit(1)
	}
	if *useMax+2 >= *totalBlocks {
		fmt.Fprintf(os.Stderr, "mkflash: total-blocks (%d) must exceed use-max+2 (%d)\n", *totalBlocks, *useMax+2)
		os.Exit(1)
	}

	dev, err := device.OpenFile(*output, *totalBlocks)
	if err != nil {
		log.WithError(err).Fatal("open device image")
	}
	defer dev.Close()

	bt := blocktable.New(*totalBlocks)
	met := metrics.NewSet(nil)
	tl := translation.New(translation.Config{TotalBlocks: *totalBlocks, UseMax: *useMax}, dev, bt, met)

	id := uuid.New()
	var volumeID [16]byte
	copy(volumeID[:], id[:])
	if err := tl.Format(volumeID); err != nil {
		log.WithError(err).Fatal("format device image")
	}

	log.WithFields(logrus.Fields{
		"output":       *output,
		"total_blocks": *totalBlocks,
		"use_max":      *useMax,
		"volume_id":    id.String(),
	}).Info("formatted device image")
}
