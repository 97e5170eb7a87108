package services

import (
	"context"
	"errors"
	"testing"

	"autonomos/internal/core"
	"autonomos/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBot_TextEntry(t *testing.T) {
	store := memory.New()
	sender := &fakeSender{}
	bot := NewBot(NewRouter(store), sender, nil)

	bot.Process(context.Background(), textMessage("João — troca de óleo — 120"))

	assert.Equal(t, []sentMessage{{To: tenant, Text: "Lançamento salvo:\nJoão | troca de óleo | R$ 120.00"}}, sender.Sent())
	assert.Len(t, store.Entries(), 1)
}

func TestBot_AudioSendsNoticeFirst(t *testing.T) {
	sender := &fakeSender{}
	router := NewRouter(memory.New(), WithTranscription(&fakeAudio{data: []byte("x")}, &fakeTranscriber{text: "Carlos revisão 80"}))
	bot := NewBot(router, sender, nil)

	bot.Process(context.Background(), audioMessage())

	sent := sender.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, AudioReceivedText, sent[0].Text)
	assert.Equal(t, "Lançamento salvo (áudio):\nCarlos | revisão | R$ 80.00", sent[1].Text)
}

func TestBot_StorageFailureRepliesGenericText(t *testing.T) {
	sender := &fakeSender{}
	bot := NewBot(NewRouter(&failingStore{Store: memory.New(), failAppend: true}), sender, nil)

	bot.Process(context.Background(), textMessage("João — troca de óleo — 120"))

	assert.Equal(t, []sentMessage{{To: tenant, Text: GenericFailureText}}, sender.Sent())
}

func TestBot_DeliveryFailureIsSwallowed(t *testing.T) {
	store := memory.New()
	sender := &fakeSender{err: errors.New("graph api 500")}
	bot := NewBot(NewRouter(store), sender, nil)

	assert.NotPanics(t, func() {
		bot.Process(context.Background(), textMessage("João — troca de óleo — 120"))
	})
	assert.Len(t, store.Entries(), 1, "entry is stored even when the reply cannot be delivered")
	assert.Len(t, sender.Sent(), 1)
}

func TestBot_RecoversPanics(t *testing.T) {
	sender := &fakeSender{}
	bot := NewBot(NewRouter(panickingStore{Store: memory.New()}), sender, nil)

	assert.NotPanics(t, func() {
		bot.Process(context.Background(), textMessage("hist"))
	})
	assert.Empty(t, sender.Sent())
}

func TestBot_IgnoresInvalidMessages(t *testing.T) {
	sender := &fakeSender{}
	bot := NewBot(NewRouter(memory.New()), sender, nil)

	bot.Process(context.Background(), core.InboundMessage{From: tenant, Source: "image"})
	bot.Process(context.Background(), core.InboundMessage{Source: core.SourceText, Text: "ajuda"})

	assert.Empty(t, sender.Sent())
}
