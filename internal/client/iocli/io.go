// Package iocli абстрагирует терминальный ввод-вывод клиента,
// чтобы команды CLI можно было тестировать со скриптованным IO.
package iocli

//go:generate moq -out io_mock.go . IO

// IO терминальный ввод-вывод команд
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	// ReadPassword читает строку без эха
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
