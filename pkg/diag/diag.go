// Package diag holds optional developer diagnostics: a live runtime stats
// page and Graphviz dumps of in-memory structures.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/bradleyjkemp/memviz"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/sirupsen/logrus"
)

const (
	DefaultStatsAddress = "localhost:12600"
	statsPath           = "/debug/statsview"
)

// LaunchStats starts the statsview server in the background and returns the
// page URL. The server runs until the process exits.
func LaunchStats(addr string, logger *logrus.Logger) string {
	if addr == "" {
		addr = DefaultStatsAddress
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	url := fmt.Sprintf("http://%s%s", addr, statsPath)

	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		if err := mgr.Start(); err != nil {
			logger.WithField("error", err).Warn("stats server stopped")
		}
	}()

	logger.WithField("url", url).Info("stats server available")
	return url
}

// DumpStructure writes a Graphviz description of v, following pointers.
func DumpStructure(w io.Writer, v any) {
	memviz.Map(w, v)
}

// WriteStructure is DumpStructure to a new file.
func WriteStructure(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	DumpStructure(f, v)
	return f.Close()
}
