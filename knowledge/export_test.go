package knowledge

// AddSentence appends s to the knowledge without running inference.
func (kb *KnowledgeBase) AddSentence(s *Sentence) {
	kb.sentences = append(kb.sentences, s)
}

// Infer runs one resolution, normalization and harvest round.
func (kb *KnowledgeBase) Infer() error {
	if _, err := kb.resolve(); err != nil {
		return err
	}
	kb.normalize()
	return kb.harvest()
}
