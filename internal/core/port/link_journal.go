package port

import "time"

// LinkJournalPort - долговечное, ограниченное по времени множество URL,
// по которым уже были выполнены побочные эффекты. Существует отдельно от базы:
// нотификации и запись в таблицу не транзакционны с базой, и после рестарта
// воркер не должен повторно уведомлять о том, что обработал за последние 24 часа.
type LinkJournalPort interface {
	// Load перечитывает журнал с диска; записи старше 24 часов молча
	// отбрасываются. Отсутствующий или битый файл - не фатально: множество
	// остается пустым, система деградирует до дедупа через базу.
	Load(now time.Time) error

	// Contains проверяет in-memory множество; никакого I/O.
	Contains(url string) bool

	// Add вносит URL в память и сразу же персистит весь снимок
	// (атомарная замена файла). Вызывается на каждую успешную
	// классификацию NEW/PRICE_CHANGED, без батчинга.
	Add(url string, now time.Time) error
}
