package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"resistorserver/internal/config"
	"resistorserver/internal/dto"
	"resistorserver/internal/logger"
	"resistorserver/internal/model"
	"resistorserver/internal/repository"
	"resistorserver/internal/resistor"

	"github.com/nfnt/resize"
)

// BufferService keeps measured readings in memory and periodically writes
// their photos to disk and the readings to the database.
type BufferService struct {
	imagesDir     string
	thumbnailSize uint
	maxDirBytes   int64
	bufferLimit   int
	flushInterval time.Duration

	readings   repository.ReadingRepository
	bands      repository.BandRepository
	components repository.ComponentRepository
	logger     *logger.Logger

	mu      sync.Mutex
	pending map[string][]dto.BufferedReading // per source
	order   []string

	flushMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func NewBufferService(cfg *config.Config, readings repository.ReadingRepository, bands repository.BandRepository, components repository.ComponentRepository, logger *logger.Logger) *BufferService {
	interval := time.Duration(cfg.ImageFlushInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &BufferService{
		imagesDir:     cfg.ImageDirectory,
		thumbnailSize: cfg.ThumbnailSize,
		maxDirBytes:   cfg.MaxImageDirectorySize << 30,
		bufferLimit:   cfg.ImageBufferLimit,
		flushInterval: interval,
		readings:      readings,
		bands:         bands,
		components:    components,
		logger:        logger,
		pending:       make(map[string][]dto.BufferedReading),
		done:          make(chan struct{}),
	}
}

// ImagesDir returns the directory photos are written to.
func (s *BufferService) ImagesDir() string {
	return s.imagesDir
}

// Run flushes the buffer every flush interval until Stop is called.
func (s *BufferService) Run() {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush()
		case <-s.done:
			return
		}
	}
}

// Stop ends Run and flushes whatever is still buffered.
func (s *BufferService) Stop() {
	s.once.Do(func() { close(s.done) })
	s.Flush()
}

// Add buffers a reading. It returns false when the source already has
// bufferLimit readings waiting.
func (s *BufferService) Add(reading dto.BufferedReading) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	queued := s.pending[reading.Source]
	if len(queued) >= s.bufferLimit {
		s.logger.Warning("Buffer full for source %s (%d/%d) - dropping reading", reading.Source, len(queued), s.bufferLimit)
		return false
	}
	if len(queued) == 0 {
		s.order = append(s.order, reading.Source)
	}
	s.pending[reading.Source] = append(queued, reading)
	return true
}

// Pending returns the number of buffered readings.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, queued := range s.pending {
		n += len(queued)
	}
	return n
}

// Flush persists every buffered reading and returns the stored ones.
func (s *BufferService) Flush() []model.Reading {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	var batch []dto.BufferedReading
	for _, source := range s.order {
		batch = append(batch, s.pending[source]...)
	}
	s.pending = make(map[string][]dto.BufferedReading)
	s.order = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
	}

	stored := make([]model.Reading, 0, len(batch))
	for i, r := range batch {
		reading, err := s.persist(r, i)
		if err != nil {
			s.logger.Error("Error storing reading from %s: %v", r.Source, err)
			continue
		}
		stored = append(stored, *reading)
	}

	s.logger.Info("Flushed %d readings to disk", len(stored))
	return stored
}

func (s *BufferService) persist(r dto.BufferedReading, seq int) (*model.Reading, error) {
	reading := &model.Reading{
		Source:     r.Source,
		Resistance: r.Result.Resistance,
		Digits:     r.Result.Digits,
		Multiplier: r.Result.Multiplier,
		Fallback:   r.Fallback,
		CreatedAt:  r.CreatedAt,
	}
	if !r.Fallback {
		reading.Colors = r.Result.Colors[:]
	}

	if len(r.Data) > 0 {
		s.writePhoto(reading, r.Data, seq)
	}

	id, err := s.readings.Insert(reading)
	if err != nil {
		s.removeFiles(reading)
		return nil, err
	}

	if len(r.Detections) > 0 {
		bands := make([]model.Band, 0, len(r.Detections))
		for _, d := range r.Detections {
			bands = append(bands, model.BandFromDetection(id, d))
		}
		if err := s.bands.InsertBatch(bands); err != nil {
			s.logger.Error("Error storing bands of reading %d: %v", id, err)
		}
	}

	if r.Component != "" {
		component := &model.Component{Name: r.Component, Value: reading.Resistance, ReadingID: &id}
		if _, err := s.components.Upsert(component); err != nil {
			s.logger.Error("Error assigning reading %d to %s: %v", id, r.Component, err)
		}
	}

	return reading, nil
}

// writePhoto saves the photo and its thumbnail, filling the file fields of
// reading. Failures are logged and leave the reading without a photo.
func (s *BufferService) writePhoto(reading *model.Reading, data []byte, seq int) {
	if s.maxDirBytes > 0 {
		size, err := dirSize(s.imagesDir)
		if err != nil {
			s.logger.Error("Error measuring %s: %v", s.imagesDir, err)
		} else if size+int64(len(data)) > s.maxDirBytes {
			s.logger.Warning("Image directory over %d bytes - storing reading without photo", s.maxDirBytes)
			return
		}
	}

	filename := PhotoFilename(reading, seq)
	if err := os.WriteFile(filepath.Join(s.imagesDir, filename), data, 0644); err != nil {
		s.logger.Error("Error saving image %s: %v", filename, err)
		return
	}
	reading.Filename = filename
	reading.FileSize = int64(len(data))

	thumb, err := MakeThumbnail(data, s.thumbnailSize)
	if err != nil {
		s.logger.Warning("No thumbnail for %s: %v", filename, err)
		return
	}
	thumbName := "thumb_" + filename
	if err := os.WriteFile(filepath.Join(s.imagesDir, thumbName), thumb, 0644); err != nil {
		s.logger.Error("Error saving thumbnail %s: %v", thumbName, err)
		return
	}
	reading.Thumbnail = thumbName
	reading.FileSize += int64(len(thumb))
}

// RemovePhoto deletes the photo and thumbnail files of a reading.
func (s *BufferService) RemovePhoto(reading *model.Reading) {
	s.removeFiles(reading)
}

// RemoveAllPhotos deletes every file in the image directory.
func (s *BufferService) RemoveAllPhotos() error {
	files, err := os.ReadDir(s.imagesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to read image directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.imagesDir, file.Name())); err != nil {
			s.logger.Error("Error deleting file %s: %v", file.Name(), err)
		}
	}
	return nil
}

func (s *BufferService) removeFiles(reading *model.Reading) {
	for _, name := range []string{reading.Filename, reading.Thumbnail} {
		if name == "" {
			continue
		}
		if err := os.Remove(filepath.Join(s.imagesDir, name)); err != nil && !os.IsNotExist(err) {
			s.logger.Error("Failed to delete file %s: %v", name, err)
		}
	}
}

// PhotoFilename names a stored photo as
// 2006-01-02_15-04-05.000_source_value_seq.jpg
func PhotoFilename(reading *model.Reading, seq int) string {
	value := resistor.FormatOhms(reading.Resistance)
	if reading.Fallback {
		value = "unknown"
	}
	return fmt.Sprintf("%s_%s_%s_%d.jpg",
		reading.CreatedAt.Format("2006-01-02_15-04-05.000"),
		sanitize(reading.Source),
		value,
		seq,
	)
}

// MakeThumbnail decodes a JPEG or PNG photo and returns a JPEG no larger than
// size x size.
func MakeThumbnail(data []byte, size uint) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := resize.Thumbnail(size, size, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func sanitize(source string) string {
	if source == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '-'
	}, source)
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return total, err
}
