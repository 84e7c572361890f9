package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RetentionWindow - через сколько запись журнала перестает подавлять дубликаты.
const RetentionWindow = 24 * time.Hour

// entry - формат одной записи в файле. Внешних читателей у файла нет,
// формат - деталь реализации.
type entry struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// FileJournal реализует LinkJournalPort поверх одного JSON-файла на источник.
// Загруженное множество живет в памяти весь ран воркера как "seen set";
// файл - его долговечная проекция, пересинхронизируемая на каждой мутации.
// Мьютекс защищает конкурентные горутины внутри одного воркера; между
// воркерами экземпляр не разделяется (у каждого источника свой файл).
type FileJournal struct {
	path string

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewFileJournal создает журнал для файла path. Файл может не существовать.
func NewFileJournal(path string) (*FileJournal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	return &FileJournal{
		path: path,
		seen: make(map[string]time.Time),
	}, nil
}

// Load перечитывает файл, отбрасывая записи старше RetentionWindow (ленивое
// истечение, без фонового sweeper'а). Отсутствующий или битый файл не фатален:
// множество остается пустым и система деградирует до дедупа через базу;
// ошибка возвращается только для логирования.
func (j *FileJournal) Load(now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.seen = make(map[string]time.Time)

	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read journal %s: %w", j.path, err)
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("corrupt journal %s: %w", j.path, err)
	}

	cutoff := now.Add(-RetentionWindow)
	for _, e := range entries {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		j.seen[e.URL] = e.Timestamp
	}
	return nil
}

// Contains проверяет только in-memory множество.
func (j *FileJournal) Contains(url string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.seen[url]
	return ok
}

// Add вносит URL в множество и сразу персистит весь снимок.
// Запись идет во временный файл с последующим атомарным rename, чтобы
// падение посреди записи никогда не оставило битый или частичный журнал.
func (j *FileJournal) Add(url string, now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.seen[url] = now
	return j.persistLocked()
}

// Size возвращает размер in-memory множества.
func (j *FileJournal) Size() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.seen)
}

func (j *FileJournal) persistLocked() error {
	entries := make([]entry, 0, len(j.seen))
	for url, ts := range j.seen {
		entries = append(entries, entry{URL: url, Timestamp: ts})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp journal: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("failed to replace journal: %w", err)
	}
	return nil
}
