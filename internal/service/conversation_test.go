package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
)

const (
	testUser = "designer"
	testChat = int64(42)
)

type conversationFixture struct {
	svc       *ConversationService
	messenger *fakeMessenger
	audit     *auditRecorder
}

func newConversationFixture(t *testing.T, components []model.Component) *conversationFixture {
	t.Helper()

	m := &fakeMessenger{}
	audit := &auditRecorder{}
	search := NewSearchService(
		staticCatalog{snap: &model.Snapshot{Components: components}},
		NewClassifier(DefaultMobileFiles, DefaultIconFiles),
		logger.NewNop(),
	)
	messages := NewMessageService(m, logger.NewNop(), WithChunking(DefaultChunkSize, 0))

	return &conversationFixture{
		svc:       NewConversationService(search, messages, audit, logger.NewNop()),
		messenger: m,
		audit:     audit,
	}
}

func (f *conversationFixture) say(t *testing.T, text string) []sentMessage {
	t.Helper()
	err := f.svc.Handle(context.Background(), model.Update{Identity: testUser, ChatID: testChat, Text: text})
	require.NoError(t, err)
	return f.messenger.take()
}

func (f *conversationFixture) phase() model.Phase {
	sess, _ := f.svc.Session(testUser)
	return sess.Phase
}

func buttons(n int) []model.Component {
	out := make([]model.Component, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, model.Component{
			Name: fmt.Sprintf("Button %02d", i),
			File: "Web Kit",
			Link: fmt.Sprintf("https://figma.com/b%d", i),
			Tags: []string{"button"},
		})
	}
	return out
}

func TestConversationSearchFlow(t *testing.T) {
	catalog := append(buttons(12), model.Component{
		Name: "Button", File: "App Components", Tags: []string{"button"},
	})
	f := newConversationFixture(t, catalog)

	sent := f.say(t, "/start")
	require.Len(t, sent, 1)
	assert.Equal(t, textGreeting, sent[0].text)
	assert.Equal(t, mainMenu, sent[0].keyboard)
	assert.Equal(t, model.PhaseIdle, f.phase())

	sent = f.say(t, "Find component")
	require.Len(t, sent, 1)
	assert.Equal(t, categoryMenu, sent[0].keyboard)
	assert.Equal(t, model.PhaseAwaitingCategory, f.phase())

	sent = f.say(t, "something else")
	assert.Empty(t, sent)
	assert.Equal(t, model.PhaseAwaitingCategory, f.phase())

	sent = f.say(t, model.LabelWeb)
	require.Len(t, sent, 1)
	assert.Equal(t, textEnterQuery, sent[0].text)
	assert.Equal(t, model.PhaseAwaitingQuery, f.phase())

	sent = f.say(t, "Button")
	require.Len(t, sent, 12)
	assert.Equal(t, "Found: 12", sent[0].text)
	assert.Contains(t, sent[1].text, "<b>Button 01</b> from <b>Web Kit</b>")
	assert.Contains(t, sent[10].text, "<b>Button 10</b>")
	assert.Equal(t, "Shown 10 of 12. Show more?", sent[11].text)
	assert.Equal(t, showMoreMenu, sent[11].keyboard)

	sess, ok := f.svc.Session(testUser)
	require.True(t, ok)
	assert.Equal(t, model.PhaseAwaitingShowMore, sess.Phase)
	assert.Equal(t, 10, sess.Cursor)
	assert.Len(t, sess.Results, 12)
	assert.Equal(t, "Button", sess.LastQuery)

	sent = f.say(t, "Show more")
	require.Len(t, sent, 3)
	assert.Contains(t, sent[0].text, "<b>Button 11</b>")
	assert.Contains(t, sent[1].text, "<b>Button 12</b>")
	assert.Equal(t, textNewQuery, sent[2].text)

	sess, _ = f.svc.Session(testUser)
	assert.Equal(t, model.PhaseAwaitingQuery, sess.Phase)
	assert.Equal(t, model.CategoryWeb, sess.Category)
	assert.Empty(t, sess.Results)

	sent = f.say(t, "accordion")
	require.Len(t, sent, 1)
	assert.Equal(t, `Nothing found for "accordion". Try another name.`, sent[0].text)
	assert.Equal(t, model.PhaseAwaitingQuery, f.phase())

	sent = f.say(t, "back")
	require.Len(t, sent, 1)
	assert.Equal(t, textMainMenu, sent[0].text)
	_, ok = f.svc.Session(testUser)
	assert.False(t, ok)
	assert.Equal(t, 0, f.svc.Sessions())

	assert.Equal(t, []string{
		"designer: start",
		"designer: find component",
		"designer: category: Web component",
		`designer: search web: "Button" (12)`,
		"designer: show more",
		`designer: search web: "accordion" (0)`,
		"designer: cancel",
	}, f.audit.all())
}

func TestConversationDeclineShowMore(t *testing.T) {
	f := newConversationFixture(t, buttons(15))
	f.say(t, "find component")
	f.say(t, "web")
	f.say(t, "button")
	require.Equal(t, model.PhaseAwaitingShowMore, f.phase())

	sent := f.say(t, "no thanks")
	require.Len(t, sent, 1)
	assert.Equal(t, textNewQuery, sent[0].text)

	sess, _ := f.svc.Session(testUser)
	assert.Equal(t, model.PhaseAwaitingQuery, sess.Phase)
	assert.Empty(t, sess.Results)
	assert.Zero(t, sess.Cursor)
}

func TestConversationSingleBatchSkipsShowMore(t *testing.T) {
	f := newConversationFixture(t, buttons(3))
	f.say(t, "find component")
	f.say(t, "web")

	sent := f.say(t, "button")
	require.Len(t, sent, 5)
	assert.Equal(t, "Found: 3", sent[0].text)
	assert.Equal(t, textNewQuery, sent[4].text)
	assert.Equal(t, model.PhaseAwaitingQuery, f.phase())
}

func TestConversationInfoPagesKeepPhase(t *testing.T) {
	f := newConversationFixture(t, buttons(1))
	f.say(t, "find component")
	f.say(t, "mobile")

	sent := f.say(t, "study GUIDES")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].text, "Granat Guides")
	assert.Equal(t, model.PhaseAwaitingQuery, f.phase())

	sent = f.say(t, "Support")
	require.Len(t, sent, 1)
	assert.Equal(t, backMenu, sent[0].keyboard)
	assert.Equal(t, model.PhaseAwaitingQuery, f.phase())
}

func TestConversationIdleHint(t *testing.T) {
	f := newConversationFixture(t, nil)

	sent := f.say(t, "hello there")
	require.Len(t, sent, 1)
	assert.Equal(t, textIdleHint, sent[0].text)
	assert.Equal(t, 0, f.svc.Sessions())
}

func TestConversationFindRestartsFromAnyPhase(t *testing.T) {
	f := newConversationFixture(t, buttons(12))
	f.say(t, "find component")
	f.say(t, "web")
	f.say(t, "button")
	require.Equal(t, model.PhaseAwaitingShowMore, f.phase())

	f.say(t, "Find component")

	sess, _ := f.svc.Session(testUser)
	assert.Equal(t, model.PhaseAwaitingCategory, sess.Phase)
	assert.Empty(t, sess.Results)
	assert.Empty(t, sess.Category)
}

func TestConversationEscapesQueryInReply(t *testing.T) {
	f := newConversationFixture(t, nil)
	f.say(t, "find component")
	f.say(t, "icon")

	sent := f.say(t, "<script>")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].text, "&lt;script&gt;")
}

func TestConversationSessionsAreIndependent(t *testing.T) {
	f := newConversationFixture(t, buttons(2))
	ctx := context.Background()

	require.NoError(t, f.svc.Handle(ctx, model.Update{Identity: "a", ChatID: 1, Text: "find component"}))
	require.NoError(t, f.svc.Handle(ctx, model.Update{Identity: "b", ChatID: 2, Text: "find component"}))
	require.NoError(t, f.svc.Handle(ctx, model.Update{Identity: "a", ChatID: 1, Text: "web"}))

	a, _ := f.svc.Session("a")
	b, _ := f.svc.Session("b")
	assert.Equal(t, model.PhaseAwaitingQuery, a.Phase)
	assert.Equal(t, model.PhaseAwaitingCategory, b.Phase)
	assert.Equal(t, 2, f.svc.Sessions())

	f.svc.Reset("a")
	assert.Equal(t, 1, f.svc.Sessions())
}
