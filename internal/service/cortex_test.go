package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haus-platform/cortex/internal/model"
	"github.com/haus-platform/cortex/internal/ratelimit"
	"github.com/haus-platform/cortex/internal/store"
	"github.com/haus-platform/cortex/pkg/logger"
)

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	memories []string
	facts    []string
	fail     bool
}

func (n *recordingNotifier) PublishMemoryCreated(_ context.Context, mem *model.Memory) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("indexer unavailable")
	}
	n.memories = append(n.memories, mem.ID)
	return nil
}

func (n *recordingNotifier) PublishFactCreated(_ context.Context, fact *model.Fact) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("indexer unavailable")
	}
	n.facts = append(n.facts, fact.ID)
	return nil
}

func newTestCortex(t *testing.T, cfg ratelimit.Config) (*Cortex, *store.Store, *recordingNotifier) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cortex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	notifier := &recordingNotifier{}
	c := New(st, ratelimit.NewLimiter(st, cfg), notifier, logger.NewNop())
	return c, st, notifier
}

func createUser(t *testing.T, c *Cortex) *model.User {
	t.Helper()
	u, err := c.CreateUser(context.Background(), "buyer@example.com", "Buyer")
	require.NoError(t, err)
	return u
}

func TestEnsureSpace_Idempotent(t *testing.T) {
	c, _, _ := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)

	first, err := c.EnsureSpace(ctx, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := c.EnsureSpace(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureSpace_UnknownUser(t *testing.T) {
	c, _, _ := newTestCortex(t, nil)

	_, err := c.EnsureSpace(context.Background(), "ghost")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestRemember_RecordsConversationAndMemory(t *testing.T) {
	c, st, notifier := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)

	res, err := c.Remember(ctx, "user:"+u.ID, &model.RememberRequest{
		UserID:        u.ID,
		UserQuery:     "show me houses in Bondi",
		AgentResponse: "I found 3 houses in Bondi",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ConversationID)
	require.NotEmpty(t, res.MemoryID)
	require.NotEmpty(t, res.SpaceID)

	conv, err := st.GetConversation(ctx, res.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "show me houses in Bondi", conv.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.True(t, conv.Messages[1].Timestamp.After(conv.Messages[0].Timestamp))

	mem, err := st.GetMemory(ctx, res.MemoryID)
	require.NoError(t, err)
	assert.Equal(t, "User: show me houses in Bondi\nAssistant: I found 3 houses in Bondi", mem.Content)
	assert.Equal(t, model.SourceVoice, mem.Source)
	assert.Equal(t, model.DefaultImportance, mem.Importance)
	assert.Equal(t, []string{model.TagVoiceSearch}, mem.Tags)

	assert.Equal(t, []string{res.MemoryID}, notifier.memories)
}

func TestRemember_CreatesSpaceOnFirstCall(t *testing.T) {
	c, st, _ := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)

	res, err := c.Remember(ctx, "user:"+u.ID, &model.RememberRequest{
		UserID:        u.ID,
		UserQuery:     "hi",
		AgentResponse: "hello",
	})
	require.NoError(t, err)

	got, err := st.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, res.SpaceID, got.MemorySpaceID)

	space, err := st.GetSpace(ctx, res.SpaceID)
	require.NoError(t, err)
	assert.Equal(t, model.SpaceStatusActive, space.Status)
	assert.Equal(t, []string{u.ID}, space.Participants)
}

func TestRemember_PropertyInteraction(t *testing.T) {
	c, st, _ := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)

	res, err := c.Remember(ctx, "user:"+u.ID, &model.RememberRequest{
		UserID:          u.ID,
		UserQuery:       "tell me about this one",
		AgentResponse:   "3 bed house in Bondi",
		PropertyID:      "p1",
		PropertyContext: map[string]any{"suburb": "Bondi", "bedrooms": float64(3)},
	})
	require.NoError(t, err)

	mem, err := st.GetMemory(ctx, res.MemoryID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.TagVoiceSearch, model.TagProperty}, mem.Tags)

	interactions, err := st.ListPropertyInteractions(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, "p1", interactions[0].PropertyID)
	assert.Equal(t, model.InteractionVoiceQuery, interactions[0].InteractionType)
	assert.Equal(t, "tell me about this one", interactions[0].Query)
}

func TestRemember_PropertyIDWithoutContext(t *testing.T) {
	c, st, _ := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)

	_, err := c.Remember(ctx, "user:"+u.ID, &model.RememberRequest{
		UserID:        u.ID,
		UserQuery:     "that listing again",
		AgentResponse: "sure",
		PropertyID:    "p1",
	})
	require.NoError(t, err)

	// Context-free mentions still tag the memory but log no interaction.
	interactions, err := st.ListPropertyInteractions(ctx, u.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, interactions)
}

func TestRemember_NotifierFailureDoesNotFailWrite(t *testing.T) {
	c, st, notifier := newTestCortex(t, nil)
	notifier.fail = true
	ctx := context.Background()
	u := createUser(t, c)

	res, err := c.Remember(ctx, "user:"+u.ID, &model.RememberRequest{
		UserID:        u.ID,
		UserQuery:     "hi",
		AgentResponse: "hello",
	})
	require.NoError(t, err)

	_, err = st.GetMemory(ctx, res.MemoryID)
	assert.NoError(t, err)
}

func TestStorePreference_RequiresExistingSpace(t *testing.T) {
	c, _, _ := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)

	_, err := c.StorePreference(ctx, "user:"+u.ID, &model.StorePreferenceRequest{
		UserID:     u.ID,
		Category:   model.CategorySuburb,
		Preference: "Bondi",
		Confidence: 80,
	})
	assert.ErrorIs(t, err, model.ErrMemorySpaceNotFound)

	_, err = c.StorePreference(ctx, "user:ghost", &model.StorePreferenceRequest{
		UserID:     "ghost",
		Category:   model.CategorySuburb,
		Preference: "Bondi",
		Confidence: 80,
	})
	assert.ErrorIs(t, err, model.ErrMemorySpaceNotFound)
}

func storeSuburbPreference(t *testing.T, c *Cortex, userID, suburb string, confidence int, reason, query string) string {
	t.Helper()
	meta, err := json.Marshal(model.SuburbMetadata{
		SuburbName:       suburb,
		State:            "NSW",
		Reason:           reason,
		MentionedInQuery: query,
	})
	require.NoError(t, err)

	factID, err := c.StorePreference(context.Background(), "user:"+userID, &model.StorePreferenceRequest{
		UserID:     userID,
		Category:   model.CategorySuburb,
		Preference: suburb,
		Confidence: confidence,
		Metadata:   meta,
	})
	require.NoError(t, err)
	return factID
}

func TestStorePreference_SuburbMerge(t *testing.T) {
	c, st, notifier := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)
	_, err := c.EnsureSpace(ctx, u.ID)
	require.NoError(t, err)

	f1 := storeSuburbPreference(t, c, u.ID, "Bondi", 80, "near the beach", "houses in bondi")
	f2 := storeSuburbPreference(t, c, u.ID, "Bondi", 70, "good schools", "bondi family homes")

	p, err := st.GetSuburbPreference(ctx, u.ID, "Bondi", "NSW")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 70, p.PreferenceScore)
	assert.Equal(t, 2, p.InteractionCount)
	assert.Equal(t, []string{"near the beach", "good schools"}, p.Reasons)
	assert.Equal(t, []string{"houses in bondi", "bondi family homes"}, p.MentionedInQueries)

	// Every call appends a fact even though the preference row merged.
	fact1, err := st.GetFact(ctx, f1)
	require.NoError(t, err)
	assert.Equal(t, model.PredicatePrefers, fact1.Predicate)
	fact2, err := st.GetFact(ctx, f2)
	require.NoError(t, err)
	assert.Equal(t, "Bondi", fact2.Object)

	assert.Equal(t, []string{f1, f2}, notifier.facts)
}

func TestStorePreference_DislikePredicate(t *testing.T) {
	c, st, _ := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)
	_, err := c.EnsureSpace(ctx, u.ID)
	require.NoError(t, err)

	factID := storeSuburbPreference(t, c, u.ID, "Penrith", 40, "", "")

	fact, err := st.GetFact(ctx, factID)
	require.NoError(t, err)
	assert.Equal(t, model.PredicateDislikes, fact.Predicate)
	assert.Equal(t, "User dislikes Penrith", fact.Fact)

	p, err := st.GetSuburbPreference(ctx, u.ID, "Penrith", "NSW")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, -40, p.PreferenceScore)
}

func TestStorePreference_GenericCategorySkipsSuburbMerge(t *testing.T) {
	c, st, _ := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)
	_, err := c.EnsureSpace(ctx, u.ID)
	require.NoError(t, err)

	factID, err := c.StorePreference(ctx, "user:"+u.ID, &model.StorePreferenceRequest{
		UserID:     u.ID,
		Category:   "property_type",
		Preference: "apartment",
		Confidence: 75,
		Metadata:   json.RawMessage(`{"bedrooms": 2}`),
	})
	require.NoError(t, err)

	fact, err := st.GetFact(ctx, factID)
	require.NoError(t, err)
	assert.Equal(t, "property_type", fact.Category)

	prefs, err := st.ListSuburbPreferences(ctx, u.ID, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, prefs)
}

func TestRecall_EmptyForUnknownUser(t *testing.T) {
	c, _, _ := newTestCortex(t, nil)

	res, err := c.Recall(context.Background(), "user:ghost", &model.RecallRequest{
		UserID: "ghost",
		Query:  "anything",
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Memories)
	assert.NotNil(t, res.Facts)
	assert.NotNil(t, res.PropertyInteractions)
	assert.NotNil(t, res.SuburbPreferences)
	assert.Empty(t, res.Memories)
	assert.Empty(t, res.Facts)
	assert.Empty(t, res.PropertyInteractions)
	assert.Empty(t, res.SuburbPreferences)
}

func TestRecall_EmptyForUserWithoutSpace(t *testing.T) {
	c, _, _ := newTestCortex(t, nil)
	u := createUser(t, c)

	res, err := c.Recall(context.Background(), "user:"+u.ID, &model.RecallRequest{
		UserID: u.ID,
		Query:  "anything",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Memories)
}

func TestRecall_FiltersLukewarmSuburbs(t *testing.T) {
	c, _, _ := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)
	_, err := c.EnsureSpace(ctx, u.ID)
	require.NoError(t, err)

	// Manly sits just above the score floor; Penrith scores negative.
	storeSuburbPreference(t, c, u.ID, "Bondi", 80, "", "")
	storeSuburbPreference(t, c, u.ID, "Manly", 55, "", "")
	storeSuburbPreference(t, c, u.ID, "Penrith", 30, "", "")

	res, err := c.Recall(ctx, "user:"+u.ID, &model.RecallRequest{UserID: u.ID, Query: "where should I buy"})
	require.NoError(t, err)
	require.Len(t, res.SuburbPreferences, 2)
	assert.Equal(t, "Bondi", res.SuburbPreferences[0].SuburbName)
	assert.Equal(t, "Manly", res.SuburbPreferences[1].SuburbName)
}

func TestRecall_TouchesReturnedMemories(t *testing.T) {
	c, st, _ := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)

	res, err := c.Remember(ctx, "user:"+u.ID, &model.RememberRequest{
		UserID: u.ID, UserQuery: "hi", AgentResponse: "hello",
	})
	require.NoError(t, err)

	_, err = c.Recall(ctx, "user:"+u.ID, &model.RecallRequest{UserID: u.ID, Query: "hi"})
	require.NoError(t, err)
	_, err = c.Recall(ctx, "user:"+u.ID, &model.RecallRequest{UserID: u.ID, Query: "hi"})
	require.NoError(t, err)

	mem, err := st.GetMemory(ctx, res.MemoryID)
	require.NoError(t, err)
	assert.Equal(t, 2, mem.AccessCount)
}

func TestVoiceSearchFlow(t *testing.T) {
	c, _, _ := newTestCortex(t, nil)
	ctx := context.Background()
	u := createUser(t, c)

	_, err := c.Remember(ctx, "user:"+u.ID, &model.RememberRequest{
		UserID:          u.ID,
		UserQuery:       "show me houses in Bondi",
		AgentResponse:   "I found 3 houses in Bondi",
		PropertyID:      "p1",
		PropertyContext: map[string]any{"suburb": "Bondi"},
	})
	require.NoError(t, err)

	storeSuburbPreference(t, c, u.ID, "Bondi", 80, "likes the beach", "show me houses in Bondi")

	res, err := c.Recall(ctx, "user:"+u.ID, &model.RecallRequest{
		UserID: u.ID,
		Query:  "anything near the water",
	})
	require.NoError(t, err)

	require.NotEmpty(t, res.Memories)
	assert.Contains(t, res.Memories[0].Content, "Bondi")

	require.Len(t, res.PropertyInteractions, 1)
	assert.Equal(t, "p1", res.PropertyInteractions[0].PropertyID)

	require.Len(t, res.SuburbPreferences, 1)
	assert.Equal(t, "Bondi", res.SuburbPreferences[0].SuburbName)
	assert.Equal(t, "NSW", res.SuburbPreferences[0].State)
	assert.Equal(t, 80, res.SuburbPreferences[0].PreferenceScore)
	assert.Equal(t, 1, res.SuburbPreferences[0].InteractionCount)
}

func TestRemember_RateLimited(t *testing.T) {
	c, st, _ := newTestCortex(t, ratelimit.Config{
		ratelimit.ClassMemory: {Ceiling: 60, Window: time.Minute},
		ratelimit.ClassRecall: {Ceiling: 120, Window: time.Minute},
	})
	ctx := context.Background()
	u := createUser(t, c)
	identity := "user:" + u.ID

	for i := 0; i < 60; i++ {
		_, err := c.Remember(ctx, identity, &model.RememberRequest{
			UserID: u.ID, UserQuery: "q", AgentResponse: "a",
		})
		require.NoError(t, err, "call %d should be admitted", i+1)
	}

	_, err := c.Remember(ctx, identity, &model.RememberRequest{
		UserID: u.ID, UserQuery: "q", AgentResponse: "a",
	})
	require.ErrorIs(t, err, model.ErrRateLimitExceeded)

	// The rejected call wrote nothing and did not inflate the bucket.
	user, err := st.GetUser(ctx, u.ID)
	require.NoError(t, err)
	memories, err := st.ListRecentMemories(ctx, user.MemorySpaceID, 100)
	require.NoError(t, err)
	assert.Len(t, memories, 60)

	count, err := st.BucketCount(ctx, ratelimit.Key(ratelimit.ClassMemory, identity))
	require.NoError(t, err)
	assert.Equal(t, 60, count)

	// StorePreference shares the memory-class bucket.
	_, err = c.StorePreference(ctx, identity, &model.StorePreferenceRequest{
		UserID: u.ID, Category: model.CategorySuburb, Preference: "Bondi", Confidence: 80,
	})
	assert.ErrorIs(t, err, model.ErrRateLimitExceeded)

	// Recall uses its own class and is still admitted.
	_, err = c.Recall(ctx, identity, &model.RecallRequest{UserID: u.ID, Query: "q"})
	assert.NoError(t, err)
}

func TestMintVoiceToken(t *testing.T) {
	c, _, _ := newTestCortex(t, ratelimit.Config{
		ratelimit.ClassVoiceToken: {Ceiling: 2, Window: time.Minute},
	})
	ctx := context.Background()

	tok1, err := c.MintVoiceToken(ctx, "ip:203.0.113.7")
	require.NoError(t, err)
	tok2, err := c.MintVoiceToken(ctx, "ip:203.0.113.7")
	require.NoError(t, err)
	assert.NotEqual(t, tok1, tok2)

	_, err = c.MintVoiceToken(ctx, "ip:203.0.113.7")
	assert.ErrorIs(t, err, model.ErrRateLimitExceeded)
}
