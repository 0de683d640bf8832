package stream

import (
	"testing"

	"github.com/rcliao/gchat/internal/model"
	"github.com/stretchr/testify/assert"
)

func user(content string) model.Message {
	return &model.UserMessage{MessageBase: model.MessageBase{Content: content}}
}

func reply(content string) model.Message {
	return &model.ModelMessage{MessageBase: model.MessageBase{Content: content}}
}

func failed(content string) model.Message {
	return &model.ModelMessage{MessageBase: model.MessageBase{Content: content}, Error: "boom"}
}

func TestAssembleHistoryCollapsesModelRuns(t *testing.T) {
	got := AssembleHistory([]model.Message{user("A"), reply("B"), reply("C")}, 10, false)
	assert.Equal(t, []Turn{{model.RoleUser, "A"}, {model.RoleModel, "C"}}, got)
}

func TestAssembleHistoryEmpty(t *testing.T) {
	assert.Equal(t, []Turn{}, AssembleHistory(nil, 10, false))
}

func TestAssembleHistoryDropsLeadingModelTurns(t *testing.T) {
	got := AssembleHistory([]model.Message{reply("x"), reply("y"), user("A"), reply("B")}, 10, false)
	assert.Equal(t, []Turn{{model.RoleUser, "A"}, {model.RoleModel, "B"}}, got)

	assert.Equal(t, []Turn{}, AssembleHistory([]model.Message{reply("only")}, 10, false))
}

func TestAssembleHistoryWindow(t *testing.T) {
	msgs := []model.Message{user("1"), reply("2"), user("3"), reply("4"), user("5"), reply("6")}

	got := AssembleHistory(msgs, 3, false)
	assert.Equal(t, []Turn{{model.RoleUser, "5"}, {model.RoleModel, "6"}}, got, "window starts on a model turn which is dropped")

	got = AssembleHistory(msgs, 3, true)
	assert.Len(t, got, 6)
}

func TestAssembleHistorySkipsFailed(t *testing.T) {
	got := AssembleHistory([]model.Message{user("A"), failed("[Error] x"), user("B"), reply("C")}, 10, false)
	assert.Equal(t, []Turn{{model.RoleUser, "A"}, {model.RoleUser, "B"}, {model.RoleModel, "C"}}, got)
}
