package ptdict

import (
	"fmt"
	"sort"
)

// Validator records every word submitted to a trie and later checks that the
// trie holds exactly that set. Each Validator owns its word set, so
// independent builds can be validated concurrently.
type Validator struct {
	trie *Trie
	pool map[string]struct{}
}

// NewValidator wraps t. Words should be added through the validator so that
// they are both recorded and inserted.
func NewValidator(t *Trie) *Validator {
	return &Validator{
		trie: t,
		pool: make(map[string]struct{}),
	}
}

func (v *Validator) AddWord(word string) error {
	return v.AddWordFrequency(word, 0)
}

func (v *Validator) AddWordFrequency(word string, frequency int) error {
	if err := v.trie.AddWordFrequency(word, frequency); err != nil {
		return err
	}
	v.pool[word] = struct{}{}
	return nil
}

// Validate walks the trie and fails with ErrIncompleteBuild if a word is
// missing, a word was never submitted, a word is emitted twice or the trie
// is structurally invalid.
func (v *Validator) Validate() error {
	if err := v.trie.CheckStructure(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(v.pool))
	err := v.trie.Walk(func(word string, _ *Node) error {
		if _, ok := v.pool[word]; !ok {
			return fmt.Errorf("%w: %q was never added", ErrIncompleteBuild, word)
		}
		if _, ok := seen[word]; ok {
			return fmt.Errorf("%w: %q found twice", ErrIncompleteBuild, word)
		}
		seen[word] = struct{}{}
		return nil
	})
	if err != nil {
		return err
	}

	if len(seen) != len(v.pool) {
		var missing []string
		for word := range v.pool {
			if _, ok := seen[word]; !ok {
				missing = append(missing, word)
			}
		}
		sort.Strings(missing)
		if len(missing) > 5 {
			missing = missing[:5]
		}
		return fmt.Errorf("%w: missing %d words, first %q",
			ErrIncompleteBuild, len(v.pool)-len(seen), missing)
	}
	return nil
}
