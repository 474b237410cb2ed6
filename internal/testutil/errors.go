package testutil

import "errors"

// ErrSimulated: sentinel для проверки путей обработки ошибок (например, отказ bug sink).
var ErrSimulated = errors.New("simulated error for testing")
