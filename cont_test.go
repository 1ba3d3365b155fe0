package logi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryContinuation(t *testing.T) {
	testCases := []struct {
		addr CodeAddr
		cont continuation
		ok   bool
	}{
		{DoFail, contFail, true},
		{DoRedo, contRedo, true},
		{DoSucceed, contSucceed, true},
		{DoResetHPFail, contResetHPFail, true},
		{DoResetFramevar0Fail, contResetFramevar0Fail, true},
		{DoNotReached, contNotReached, true},
		{doEngineDone, contNone, false},
		{0, contNone, false},
		{42, contNone, false},
	}
	for _, tc := range testCases {
		c, ok := entryContinuation(tc.addr)
		assert.Equal(t, tc.ok, ok, "addr %d", tc.addr)
		assert.Equal(t, tc.cont, c, "addr %d", tc.addr)
	}
}

func TestCodeAddrString(t *testing.T) {
	testCases := []struct {
		addr CodeAddr
		want string
	}{
		{DoFail, "do_fail"},
		{DoRedo, "do_redo"},
		{DoSucceed, "do_succeed"},
		{DoResetHPFail, "do_reset_hp_fail"},
		{DoResetFramevar0Fail, "do_reset_framevar0_fail"},
		{DoNotReached, "do_not_reached"},
		{doEngineDone, "engine_done"},
		{0, "0"},
		{17, "17"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, tc.addr.String())
	}
}

func TestContinuationString(t *testing.T) {
	assert.Equal(t, "fail", contFail.String())
	assert.Equal(t, "reset_framevar0_fail", contResetFramevar0Fail.String())
	assert.Equal(t, "continuation(99)", continuation(99).String())
}
