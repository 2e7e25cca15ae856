package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/park285/otheller-go/internal/session"
	dto "github.com/park285/otheller-go/pkg/othellodto"
)

// MaxStrategySize caps a single strategy upload.
const MaxStrategySize = 1 << 20

var (
	ErrNoFile     = errors.New("no file selected")
	ErrEmptyFile  = errors.New("strategy file is empty")
	ErrFileTooBig = errors.New("strategy file too large")
	ErrNotAFile   = errors.New("strategy path is a directory")
)

// Form holds the user's upload choices: strategy file paths, mode and the
// human's colour.
type Form struct {
	mu      sync.RWMutex
	player1 string
	player2 string
	ai      string
	mode    session.ModeKind
	human   dto.Player

	readFile func(string) ([]byte, error)
	stat     func(string) (os.FileInfo, error)
}

func NewForm() *Form {
	return &Form{mode: session.ModeAIvsAI, human: dto.Player1, readFile: os.ReadFile, stat: os.Stat}
}

func (f *Form) SetStrategyPaths(player1, player2 string) {
	f.mu.Lock()
	f.player1, f.player2 = strings.TrimSpace(player1), strings.TrimSpace(player2)
	f.mu.Unlock()
}

func (f *Form) SetPlayer1Path(path string) {
	f.mu.Lock()
	f.player1 = strings.TrimSpace(path)
	f.mu.Unlock()
}

func (f *Form) SetPlayer2Path(path string) {
	f.mu.Lock()
	f.player2 = strings.TrimSpace(path)
	f.mu.Unlock()
}

// Paths returns the selected player1, player2 and AI paths.
func (f *Form) Paths() (player1, player2, ai string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.player1, f.player2, f.ai
}

func (f *Form) SetAIPath(path string) {
	f.mu.Lock()
	f.ai = strings.TrimSpace(path)
	f.mu.Unlock()
}

func (f *Form) SetMode(k session.ModeKind) {
	f.mu.Lock()
	f.mode = k
	f.mu.Unlock()
}

// SetHumanColor accepts black/white (or b/w).
func (f *Form) SetHumanColor(s string) error {
	p, err := dto.ParseColor(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.human = p
	f.mu.Unlock()
	return nil
}

func (f *Form) StrategiesReady() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.player1 != "" && f.player2 != ""
}

func (f *Form) HumanVsAIReady() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ai != ""
}

func (f *Form) SelectedMode() session.ModeKind {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.mode
}

func (f *Form) HumanColor() dto.Player {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.human
}

func (f *Form) StrategyBundle() (dto.StrategyBundle, error) {
	f.mu.RLock()
	p1, p2 := f.player1, f.player2
	f.mu.RUnlock()
	a, err := f.load(p1)
	if err != nil {
		return dto.StrategyBundle{}, fmt.Errorf("player1: %w", err)
	}
	b, err := f.load(p2)
	if err != nil {
		return dto.StrategyBundle{}, fmt.Errorf("player2: %w", err)
	}
	return dto.StrategyBundle{Player1: a, Player2: b}, nil
}

func (f *Form) AIStrategy() (dto.StrategyFile, error) {
	f.mu.RLock()
	p := f.ai
	f.mu.RUnlock()
	file, err := f.load(p)
	if err != nil {
		return dto.StrategyFile{}, fmt.Errorf("ai: %w", err)
	}
	return file, nil
}

func (f *Form) load(path string) (dto.StrategyFile, error) {
	if path == "" {
		return dto.StrategyFile{}, ErrNoFile
	}
	fi, err := f.stat(path)
	if err != nil {
		return dto.StrategyFile{}, err
	}
	if fi.IsDir() {
		return dto.StrategyFile{}, ErrNotAFile
	}
	if fi.Size() > MaxStrategySize {
		return dto.StrategyFile{}, fmt.Errorf("%w: %d bytes", ErrFileTooBig, fi.Size())
	}
	b, err := f.readFile(path)
	if err != nil {
		return dto.StrategyFile{}, err
	}
	if len(b) == 0 {
		return dto.StrategyFile{}, ErrEmptyFile
	}
	return dto.StrategyFile{Name: filepath.Base(path), Content: b}, nil
}
