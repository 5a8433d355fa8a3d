package ir

import "strings"

// Lifecycle tag prefixes for asynchronous actions.
const (
	WaitPrefix    = "WAIT@"
	SuccessPrefix = "SUCCESS@"
	FailPrefix    = "FAIL@"
)

// Lifecycle holds the three dispatch types tracking an asynchronous action's
// pending, resolved and rejected phases.
type Lifecycle struct {
	Wait    string `json:"wait"`
	Success string `json:"success"`
	Fail    string `json:"fail"`
}

// LifecycleOf derives the lifecycle tags for an action name.
// Tags are a pure function of the name; uniqueness follows from name uniqueness.
func LifecycleOf(name string) Lifecycle {
	return Lifecycle{
		Wait:    WaitPrefix + name,
		Success: SuccessPrefix + name,
		Fail:    FailPrefix + name,
	}
}

// Types returns the tags in dispatch order: wait, success, fail.
func (l Lifecycle) Types() []string {
	return []string{l.Wait, l.Success, l.Fail}
}

// Contains reports whether t is one of the three tags.
func (l Lifecycle) Contains(t string) bool {
	return t == l.Wait || t == l.Success || t == l.Fail
}

// SplitLifecycleType splits a lifecycle tag into its prefix and action name.
// ok is false for types that carry none of the lifecycle prefixes.
func SplitLifecycleType(t string) (prefix, name string, ok bool) {
	for _, p := range []string{WaitPrefix, SuccessPrefix, FailPrefix} {
		if rest, found := strings.CutPrefix(t, p); found {
			return p, rest, true
		}
	}
	return "", "", false
}
