package handler

import (
	"voiceorder-service/internal/blob"
	"voiceorder-service/internal/catalog"
	"voiceorder-service/internal/order"
	"voiceorder-service/internal/prompt"
)

var (
	pipeline       *order.Processor
	blobStore      blob.Store
	catalogClient  *catalog.Client
	promptStore    *prompt.Store
	promptImprover *prompt.Improver
)

// Init wires the handlers to their collaborators. Called once from main
// before routes are registered.
func Init(p *order.Processor, b blob.Store, c *catalog.Client, s *prompt.Store, i *prompt.Improver) {
	pipeline = p
	blobStore = b
	catalogClient = c
	promptStore = s
	promptImprover = i
}
