package realtime

import "github.com/guipratiko/front-conexprob/internal/domain"

func messageWithContent(text string) domain.Message {
	return domain.Message{ID: text, SenderID: "m-1", Content: text}
}
