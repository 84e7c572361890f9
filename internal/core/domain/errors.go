package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateURL возвращается хранилищем, когда вставка проиграла гонку
// уникальному индексу по url. Движок обязан классифицировать это как
// дубликат постфактум, а не как фатальную ошибку.
var ErrDuplicateURL = errors.New("listing with this url already exists")

// FetchError - сбой на уровне страницы/сети. Текущая страница отбрасывается,
// цикл продолжается после стандартного ожидания.
type FetchError struct {
	PageURL string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.PageURL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError - один фрагмент не распарсился; страницу не прерывает.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for source %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
