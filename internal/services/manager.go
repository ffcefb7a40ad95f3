package services

import (
	"errors"
	"sync"
	"time"

	"resistorserver/internal/config"
	"resistorserver/internal/dto"
	"resistorserver/internal/logger"
	"resistorserver/internal/resistor"
	"resistorserver/internal/services/ai"
	"resistorserver/internal/services/storage"
	"resistorserver/internal/services/websocket"
)

var (
	// ErrQueueFull is returned by Submit when no worker can take the photo.
	ErrQueueFull = errors.New("processing queue full")
	// ErrStopped is returned once the manager has been stopped.
	ErrStopped = errors.New("manager stopped")
)

// BandDrawer is implemented by detectors that can annotate a photo with the
// bands they found.
type BandDrawer interface {
	DrawBands(detections []resistor.RawDetection, img []byte) ([]byte, error)
}

// Measurement is the outcome of measuring one photo.
type Measurement struct {
	Source     string
	Detections []resistor.RawDetection
	Result     resistor.DecodeResult
	Fallback   bool
	Buffered   bool
}

// Response converts the measurement into the API payload.
func (m *Measurement) Response() dto.DecodeResponse {
	resp := dto.NewDecodeResponse(m.Result, m.Fallback, len(m.Detections))
	resp.Source = m.Source
	return resp
}

// MeasureTask is a photo waiting for a worker.
type MeasureTask struct {
	Image     []byte
	Source    string
	Component string
}

type Manager struct {
	bufferService    *storage.BufferService
	websocketService *websocket.HubService
	logger           *logger.Logger

	detectors          []ai.BandDetector
	detectorPool       chan ai.BandDetector // każdy detektor używany przez jeden wątek naraz
	fallbackResistance float64

	processingQueue chan MeasureTask
	numWorkers      int

	stopMu  sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewManager(detectors []ai.BandDetector, bufferService *storage.BufferService, websocketService *websocket.HubService, config *config.Config, logger *logger.Logger) *Manager {
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}

	manager := &Manager{
		detectors:          detectors,
		detectorPool:       make(chan ai.BandDetector, len(detectors)),
		bufferService:      bufferService,
		websocketService:   websocketService,
		fallbackResistance: config.FallbackResistance,
		numWorkers:         len(detectors), // jeden worker na detektor
		processingQueue:    make(chan MeasureTask, queueSize),
		logger:             logger,
	}
	for _, d := range detectors {
		manager.detectorPool <- d
	}

	for i := 0; i < manager.numWorkers; i++ {
		manager.wg.Add(1)
		go manager.processingWorker(i)
	}

	manager.logger.Info("Manager started with %d worker(s), queue size %d", manager.numWorkers, queueSize)
	return manager
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}

func (m *Manager) GetBufferService() *storage.BufferService {
	return m.bufferService
}

// DecodeDetections decodes detections, reporting the configured fallback
// resistance when there are none.
func (m *Manager) DecodeDetections(detections []resistor.RawDetection) (resistor.DecodeResult, bool) {
	result, fallback := resistor.DecodeOrFallback(detections)
	if fallback {
		result.Resistance = m.fallbackResistance
		m.logger.Warning("No bands detected - reporting fallback value %s", resistor.FormatOhms(m.fallbackResistance))
		return result, true
	}

	m.logger.Info("Decoded %v as %s", result.Colors, resistor.FormatOhms(result.Resistance))
	return result, false
}

// Measure detects, decodes, buffers and broadcasts one photo synchronously.
func (m *Manager) Measure(image []byte, source, component string) (*Measurement, error) {
	m.stopMu.RLock()
	defer m.stopMu.RUnlock()
	if m.stopped {
		return nil, ErrStopped
	}
	if len(m.detectors) == 0 {
		return nil, ai.ErrModelNotReady
	}

	detector := <-m.detectorPool
	defer func() { m.detectorPool <- detector }()

	return m.measure(detector, MeasureTask{Image: image, Source: source, Component: component})
}

func (m *Manager) measure(detector ai.BandDetector, task MeasureTask) (*Measurement, error) {
	detections, err := detector.Detect(task.Image)
	if err != nil {
		return nil, err
	}

	result, fallback := m.DecodeDetections(detections)
	measurement := &Measurement{
		Source:     task.Source,
		Detections: detections,
		Result:     result,
		Fallback:   fallback,
	}

	photo := task.Image
	if drawer, ok := detector.(BandDrawer); ok && len(detections) > 0 {
		annotated, err := drawer.DrawBands(detections, task.Image)
		if err != nil {
			m.logger.Error("Failed to draw bands: %v", err)
		} else {
			photo = annotated
		}
	}

	if m.bufferService != nil {
		measurement.Buffered = m.bufferService.Add(dto.BufferedReading{
			CreatedAt:  time.Now(),
			Source:     task.Source,
			Component:  task.Component,
			Detections: detections,
			Result:     result,
			Fallback:   fallback,
			Data:       photo,
		})
	}

	m.SendToViewers(measurement.Response())
	return measurement, nil
}

// SendToViewers broadcasts a reading to the live feed.
func (m *Manager) SendToViewers(reading dto.DecodeResponse) {
	if m.websocketService == nil {
		return
	}
	if err := m.websocketService.BroadcastJSON(reading); err != nil {
		m.logger.Error("Failed to encode reading for viewers: %v", err)
	}
}

// Submit queues a photo for the workers.
func (m *Manager) Submit(image []byte, source, component string) error {
	m.stopMu.RLock()
	defer m.stopMu.RUnlock()
	if m.stopped {
		return ErrStopped
	}

	select {
	case m.processingQueue <- MeasureTask{Image: image, Source: source, Component: component}:
		m.logger.Info("Source %s: photo queued for processing", source)
		return nil
	default:
		m.logger.Warning("Processing queue full for source %s - rejecting photo", source)
		return ErrQueueFull
	}
}

// ModelState reports the best state across detectors that expose one.
func (m *Manager) ModelState() ai.State {
	best := ai.Uninitialized
	rank := map[ai.State]int{ai.Uninitialized: 0, ai.Failed: 1, ai.Loading: 2, ai.Ready: 3}
	for _, d := range m.detectors {
		s, ok := d.(interface{ State() ai.State })
		if !ok {
			return ai.Ready
		}
		if st := s.State(); rank[st] > rank[best] {
			best = st
		}
	}
	return best
}

// processingWorker przetwarza zdjęcia z kolejki
func (m *Manager) processingWorker(workerID int) {
	defer m.wg.Done()

	m.logger.Info("Processing worker %d started", workerID)

	for task := range m.processingQueue {
		detector := <-m.detectorPool
		if _, err := m.measure(detector, task); err != nil {
			m.logger.Error("Worker %d: measuring photo from %s failed: %v", workerID, task.Source, err)
		}
		m.detectorPool <- detector
	}

	m.logger.Info("Processing worker %d stopped", workerID)
}

// Stop zatrzymuje wszystkie workery i zamyka detektory
func (m *Manager) Stop() {
	m.stopMu.Lock()
	if m.stopped {
		m.stopMu.Unlock()
		return
	}
	m.stopped = true
	close(m.processingQueue)
	m.stopMu.Unlock()

	m.wg.Wait()
	for range m.detectors {
		d := <-m.detectorPool
		if err := d.Close(); err != nil {
			m.logger.Error("Failed to close detector: %v", err)
		}
	}
	m.logger.Info("All processing workers stopped")
}
