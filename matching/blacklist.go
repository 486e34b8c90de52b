package matching

import "fmt"

// Blacklist множество идентификаторов источника, уже занятых принятыми совпадениями.
// Только растет и живет в пределах одного запуска.
// Не потокобезопасен: все обращения идут из одного цикла сверки.
type Blacklist struct {
	consumed map[string]struct{}
}

// NewBlacklist создает пустой черный список
func NewBlacklist() *Blacklist {
	return &Blacklist{consumed: make(map[string]struct{})}
}

// IsAvailable проверяет, свободен ли идентификатор
func (b *Blacklist) IsAvailable(id string) bool {
	_, taken := b.consumed[id]
	return !taken
}

// Consume помечает идентификатор занятым.
// Повторное занятие считается ошибкой вызывающего, поэтому сначала нужно проверить IsAvailable.
func (b *Blacklist) Consume(id string) error {
	if _, taken := b.consumed[id]; taken {
		return fmt.Errorf("%w: %q", ErrAlreadyConsumed, id)
	}
	b.consumed[id] = struct{}{}
	return nil
}

// Len возвращает количество занятых идентификаторов
func (b *Blacklist) Len() int {
	return len(b.consumed)
}
