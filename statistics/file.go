package statistics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is the document published to the status file.
type Status struct {
	Host       string     `json:"host"`
	Window     Window     `json:"window"`
	Updated    time.Time  `json:"updated"`
	Statistics Statistics `json:"statistics"`
	Stopped    bool       `json:"stopped,omitempty"`
}

// StatusFile rewrites a JSON status document every time the counters change.
// Only the current window is kept. The document is always built from the
// aggregator's current state, a snapshot handed over by a probe that raced
// with a window reset is never published.
type StatusFile struct {
	Path string
	Host string
	Agg  *Aggregator

	mu sync.Mutex
}

func NewStatusFile(path, host string, agg *Aggregator) *StatusFile {
	return &StatusFile{Path: path, Host: host, Agg: agg}
}

func (f *StatusFile) ProbeRecorded(string, Outcome, Statistics) {
	f.write(false)
}

func (f *StatusFile) ProbeSkipped(string, error) {}

func (f *StatusFile) WindowTick(time.Duration) {}

func (f *StatusFile) WindowReset(Statistics) {
	f.write(false)
}

func (f *StatusFile) Stopped(Statistics) {
	f.write(true)
}

func (f *StatusFile) write(stopped bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := Status{Host: f.Host, Updated: time.Now(), Stopped: stopped}
	st.Statistics, st.Window = f.Agg.State()

	b, err := json.Marshal(st)
	if err != nil {
		logrus.Error("Encoding status: ", err)
		return
	}

	// Write then rename so readers never see a partial document
	tmp := filepath.Join(filepath.Dir(f.Path), "."+filepath.Base(f.Path)+".tmp")
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		logrus.Error("Writing status file: ", err)
		return
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		logrus.Error("Replacing status file: ", err)
	}
}

// ReadStatusFile loads a status document written by StatusFile.
func ReadStatusFile(path string) (st Status, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	err = json.Unmarshal(data, &st)
	return
}
