package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestPairsToFields(t *testing.T) {
	fields := pairsToFields([]interface{}{"entry", 3, "next", "soon", "dangling"})

	assert.Len(t, fields, 2)
	assert.Equal(t, Field{Key: "entry", Value: 3}, fields[0])
	assert.Equal(t, Field{Key: "next", Value: "soon"}, fields[1])
}

func TestPairsToFieldsNonStringKey(t *testing.T) {
	fields := pairsToFields([]interface{}{42, true})

	assert.Len(t, fields, 1)
	assert.Equal(t, "42", fields[0].Key)
}

func TestErrorFieldNil(t *testing.T) {
	f := Error(nil)
	assert.Equal(t, "error", f.Key)
	assert.Nil(t, f.Value)
}

func TestNewZapLoggerLevels(t *testing.T) {
	log, err := NewZapLogger(Options{Level: "debug"})
	assert.NoError(t, err)
	assert.True(t, log.(*ZapLogger).Logger().Core().Enabled(zapcore.DebugLevel))

	log, err = NewZapLogger(Options{})
	assert.NoError(t, err)
	assert.False(t, log.(*ZapLogger).Logger().Core().Enabled(zapcore.DebugLevel))

	_, err = NewZapLogger(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestToZapFieldTypes(t *testing.T) {
	assert.Equal(t, zapcore.StringType, toZapField(String("k", "v")).Type)
	assert.Equal(t, zapcore.Int64Type, toZapField(Int64("k", 7)).Type)
	assert.Equal(t, zapcore.BoolType, toZapField(Bool("k", true)).Type)
	assert.Equal(t, zapcore.DurationType, toZapField(Duration("k", time.Second)).Type)
	assert.Equal(t, zapcore.SkipType, toZapField(Error(nil)).Type)
}
