// Package sample holds the synthetic senders and bodies shared by the seeder
// and the event server's message generator.
package sample

import "math/rand/v2"

// Senders is the roster synthetic messages are drawn from.
var Senders = []string{
	"Alice", "Bob", "Charlie", "Diana", "Eve",
	"Frank", "Grace", "Henry", "Ivy", "Jack",
}

// Templates are the plaintext bodies synthetic messages are drawn from.
var Templates = []string{
	"Hey, how are you?",
	"Did you see the latest update?",
	"Let's meet tomorrow",
	"Thanks for your help!",
	"Can you send me the file?",
	"I'll be there in 5 minutes",
	"Great idea!",
	"What time works for you?",
	"Just finished the project",
	"Happy birthday!",
	"See you later",
	"That sounds good",
	"I agree with you",
	"Let me check and get back to you",
	"Perfect, thanks!",
}

// Sender picks a random sender. A nil r uses the global source.
func Sender(r *rand.Rand) string {
	return pick(r, Senders)
}

// Body picks a random template.
func Body(r *rand.Rand) string {
	return pick(r, Templates)
}

func pick(r *rand.Rand, from []string) string {
	if r == nil {
		return from[rand.IntN(len(from))]
	}
	return from[r.IntN(len(from))]
}
