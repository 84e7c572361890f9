package port

import "context"

// Notification - одно исходящее сообщение о новом объявлении.
type Notification struct {
	Text    string
	Image   []byte // опционально; nil - отправить как чистый текст
	LinkURL string // опционально; кнопка "посмотреть объявление"
}

// NotifierPort - канал уведомлений. Внутри ретраит rate-limit по
// серверному retry-after и транзиентные ошибки с экспоненциальным
// бэкоффом до фиксированного числа попыток. Никогда не паникует и не
// возвращает ошибку наверх - только булев исход.
type NotifierPort interface {
	Notify(ctx context.Context, n Notification) bool
}
