//go:build !ci

package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

const sampleRate = beep.SampleRate(44100)

// tone 合成提示音的参数
type tone struct {
	freq     float64
	duration time.Duration
}

// defaultTones 没有音频文件时使用的合成音
var defaultTones = map[Cue]tone{
	CueJoin:     {freq: 660, duration: 120 * time.Millisecond},
	CueTurn:     {freq: 880, duration: 150 * time.Millisecond},
	CueDamage:   {freq: 220, duration: 250 * time.Millisecond},
	CueTargeted: {freq: 440, duration: 200 * time.Millisecond},
}

type SoundManager struct {
	mu      sync.RWMutex
	buffers map[Cue]*beep.Buffer
	enabled bool
}

func NewSoundManager() *SoundManager {
	return &SoundManager{
		buffers: make(map[Cue]*beep.Buffer),
	}
}

// Init 打开扬声器并准备提示音：assets/sounds 下的同名文件优先，缺失的用合成音补齐
func (sm *SoundManager) Init() error {
	// Init speaker with smaller buffer for lower latency
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.enabled = true

	if err := sm.loadSoundFiles("assets/sounds"); err != nil {
		return err
	}
	return sm.synthesizeMissing()
}

// synthesizeMissing 为没有音频文件的提示生成正弦音
func (sm *SoundManager) synthesizeMissing() error {
	for cue, t := range defaultTones {
		if _, ok := sm.buffers[cue]; ok {
			continue
		}
		buf, err := toneBuffer(t)
		if err != nil {
			return fmt.Errorf("failed to synthesize %s: %w", cue, err)
		}
		sm.buffers[cue] = buf
	}
	return nil
}

func standardFormat() beep.Format {
	return beep.Format{
		SampleRate:  sampleRate,
		NumChannels: 2,
		Precision:   2,
	}
}

// toneBuffer 生成定长正弦音
func toneBuffer(t tone) (*beep.Buffer, error) {
	sine, err := generators.SineTone(sampleRate, t.freq)
	if err != nil {
		return nil, err
	}
	buffer := beep.NewBuffer(standardFormat())
	buffer.Append(beep.Take(sampleRate.N(t.duration), sine))
	return buffer, nil
}

// loadSoundFiles 加载目录中与提示同名的 mp3/wav 文件
func (sm *SoundManager) loadSoundFiles(soundDir string) error {
	files, err := os.ReadDir(soundDir)
	if err != nil {
		// It's okay if directory doesn't exist, just no sounds
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sound directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".mp3" && ext != ".wav" {
			continue
		}

		// Continue loading other files even if one fails
		_ = sm.loadSoundFile(filepath.Join(soundDir, name), Cue(strings.TrimSuffix(name, filepath.Ext(name))), ext)
	}
	return nil
}

func (sm *SoundManager) loadSoundFile(path string, cue Cue, ext string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		return err
	}
	defer func() { _ = streamer.Close() }()

	var resampled beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		resampled = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	buffer := beep.NewBuffer(standardFormat())
	buffer.Append(resampled)
	sm.buffers[cue] = buffer
	return nil
}

// Play 播放提示音，未初始化或未知提示时静默
func (sm *SoundManager) Play(cue Cue) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.enabled {
		return
	}

	buffer, ok := sm.buffers[cue]
	if !ok {
		return
	}
	speaker.Play(buffer.Streamer(0, buffer.Len()))
}

func (sm *SoundManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.enabled {
		speaker.Clear()
	}
	sm.enabled = false
}
