package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferIntent_KeywordPrecedence(t *testing.T) {
	assert.Equal(t, IntentRemember, InferIntent("what did I say last time about deploys"))
	assert.Equal(t, IntentTroubleshoot, InferIntent("the build is failing with a crash"))
	assert.Equal(t, IntentDecide, InferIntent("should I choose postgres or mysql"))
	assert.Equal(t, IntentLearn, InferIntent("how does the retry logic work"))
	assert.Equal(t, IntentUnknown, InferIntent("deploy the service now"))
}

func TestAdaptiveSourceWeights_SumToOne(t *testing.T) {
	queries := []string{
		"what about that thing we discussed",
		"find the entity named foo-service",
		"how do I configure retries",
		"deploy now",
	}
	for _, q := range queries {
		w := AdaptiveSourceWeights(q, false)
		assert.InDelta(t, 1.0, w.Conversation+w.Semantic+w.Graph, 0.01)
	}
}

func TestAdaptiveSourceWeights_PronounsBoostConversation(t *testing.T) {
	w := AdaptiveSourceWeights("can you tell me more about it", false)
	assert.Equal(t, 0.5, w.Conversation)
}

func TestAdaptiveSourceWeights_IdentifiersBoostGraph(t *testing.T) {
	w := AdaptiveSourceWeights("find the entity named PythonService", false)
	assert.Equal(t, 0.5, w.Graph)
}

func TestAdaptiveSourceWeights_QuestionWordsBoostSemantic(t *testing.T) {
	w := AdaptiveSourceWeights("what is the retry policy", false)
	assert.Equal(t, 0.6, w.Semantic)
}

func TestAdaptiveSourceWeights_DefaultWithoutSession(t *testing.T) {
	w := AdaptiveSourceWeights("deploy the service", false)
	assert.Equal(t, SourceWeights{Conversation: 0.3, Semantic: 0.4, Graph: 0.3}, w)
}
