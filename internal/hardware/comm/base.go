package comm

import (
	"sync"

	"roboarm/internal/logging"
)

// BaseSink tracks the connection state of a joint output. Concrete sinks embed
// it.
type BaseSink struct {
	name      string
	status    ConnectionStatus
	lastError error
	writes    uint64
	failures  uint64
	mutex     sync.RWMutex
	logger    *logging.Logger
}

// NewBaseSink starts disconnected.
func NewBaseSink(name string) *BaseSink {
	return &BaseSink{
		name:   name,
		status: StatusDisconnected,
		logger: logging.GetLogger("joint_sink").With("sink", name),
	}
}

func (bs *BaseSink) Name() string { return bs.name }

func (bs *BaseSink) GetStatus() ConnectionStatus {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	return bs.status
}

func (bs *BaseSink) SetStatus(status ConnectionStatus) {
	bs.mutex.Lock()
	old := bs.status
	bs.status = status
	bs.mutex.Unlock()

	if old != status {
		bs.logger.Debug("Connection status changed", "from", old.String(), "to", status.String())
	}
}

func (bs *BaseSink) IsConnected() bool {
	return bs.GetStatus() == StatusConnected
}

func (bs *BaseSink) GetLastError() error {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	return bs.lastError
}

// RecordWrite counts a successful write.
func (bs *BaseSink) RecordWrite() {
	bs.mutex.Lock()
	bs.writes++
	bs.mutex.Unlock()
}

func (bs *BaseSink) Stats() (writes, failures uint64) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	return bs.writes, bs.failures
}

// HandleWithError records err and returns it. Only the first failure after a
// success is logged, so a dead bus does not flood the log at frame rate.
func (bs *BaseSink) HandleWithError(err error) error {
	bs.mutex.Lock()
	first := bs.lastError == nil
	bs.lastError = err
	bs.failures++
	bs.mutex.Unlock()

	if first {
		bs.logger.Error("Joint output error", "error", err)
	}
	return err
}

// ClearError marks the sink healthy again.
func (bs *BaseSink) ClearError() {
	bs.mutex.Lock()
	recovered := bs.lastError != nil
	bs.lastError = nil
	bs.mutex.Unlock()

	if recovered {
		bs.logger.Info("Joint output recovered")
	}
}
