package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roboarm/internal/logging"
)

// EventLoop drives registered modules once per frame from a single
// goroutine. The dt handed to each module is the wall-clock time between the
// end of the previous frame and the start of the current one, so animation
// speed follows the real frame rate rather than a fixed timestep.
type EventLoop struct {
	interval    time.Duration
	modules     map[string]Module
	order       []string
	modulesLock sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	frames      uint64
	lastEnd     time.Time
	now         func() time.Time
	logger      *logging.Logger
}

// NewEventLoop creates a loop that ticks every interval.
func NewEventLoop(interval time.Duration) *EventLoop {
	return &EventLoop{
		interval: interval,
		modules:  make(map[string]Module),
		now:      time.Now,
		logger:   logging.GetLogger("event_loop"),
	}
}

// Start starts every module, then runs frames until ctx is done or Stop.
func (el *EventLoop) Start(ctx context.Context) error {
	if el.running {
		return fmt.Errorf("event loop is already running")
	}

	el.ctx, el.cancel = context.WithCancel(ctx)
	el.running = true
	el.lastEnd = time.Time{}

	el.modulesLock.RLock()
	for _, name := range el.order {
		if err := el.modules[name].Start(el.ctx); err != nil {
			el.modulesLock.RUnlock()
			el.cancel()
			el.running = false
			return fmt.Errorf("failed to start module %s: %w", name, err)
		}
	}
	el.modulesLock.RUnlock()

	el.wg.Add(1)
	go el.run()

	el.logger.Info("Event loop started", "interval", el.interval)
	return nil
}

// Stop ends the frame loop and stops every module.
func (el *EventLoop) Stop() error {
	if !el.running {
		return fmt.Errorf("event loop is not running")
	}

	el.cancel()
	el.wg.Wait()

	el.modulesLock.Lock()
	for _, name := range el.order {
		el.logger.Debug("Stopping module", "module", name)
		if err := el.modules[name].Stop(); err != nil {
			el.logger.Error("Error stopping module", "module", name, "error", err)
		}
	}
	el.modulesLock.Unlock()

	el.running = false
	el.logger.Info("Event loop stopped", "frames", el.frames)
	return nil
}

// RegisterModule adds a module to be processed every frame.
func (el *EventLoop) RegisterModule(name string, module Module) error {
	el.modulesLock.Lock()
	defer el.modulesLock.Unlock()

	if _, exists := el.modules[name]; exists {
		return fmt.Errorf("module %s already registered", name)
	}

	if el.running {
		if err := module.Start(el.ctx); err != nil {
			return fmt.Errorf("failed to start module %s: %w", name, err)
		}
	}

	el.modules[name] = module
	el.order = append(el.order, name)
	el.logger.Info("Module registered", "module", name)
	return nil
}

// UnregisterModule removes a module by name.
func (el *EventLoop) UnregisterModule(name string) error {
	el.modulesLock.Lock()
	defer el.modulesLock.Unlock()

	module, exists := el.modules[name]
	if !exists {
		return fmt.Errorf("module %s not found", name)
	}

	if el.running {
		if err := module.Stop(); err != nil {
			el.logger.Error("Error stopping module", "module", name, "error", err)
		}
	}

	delete(el.modules, name)
	for i, n := range el.order {
		if n == name {
			el.order = append(el.order[:i], el.order[i+1:]...)
			break
		}
	}
	el.logger.Info("Module unregistered", "module", name)
	return nil
}

func (el *EventLoop) run() {
	defer el.wg.Done()

	ticker := time.NewTicker(el.interval)
	defer ticker.Stop()

	for {
		select {
		case <-el.ctx.Done():
			return
		case <-ticker.C:
			el.processCycle()
		}
	}
}

func (el *EventLoop) processCycle() {
	start := el.now()
	var dt time.Duration
	if !el.lastEnd.IsZero() {
		dt = start.Sub(el.lastEnd)
		if dt < 0 {
			dt = 0
		}
	}

	el.modulesLock.RLock()
	for _, name := range el.order {
		if err := el.modules[name].Process(dt); err != nil {
			el.logger.Error("Error processing module", "module", name, "error", err)
		}
	}
	el.modulesLock.RUnlock()

	el.frames++
	el.lastEnd = el.now()
}

// GetModuleStatus collects Status from every module.
func (el *EventLoop) GetModuleStatus() map[string]interface{} {
	el.modulesLock.RLock()
	defer el.modulesLock.RUnlock()

	status := make(map[string]interface{})
	for name, module := range el.modules {
		status[name] = module.Status()
	}
	return status
}
