package framework

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregatedErrorEmpty(t *testing.T) {
	var errs AggregatedError
	errs.Add(nil, nil)
	require.NoError(t, errs.Aggregate())
}

func TestAggregatedErrorLabeled(t *testing.T) {
	var errs AggregatedError
	errs.AddLabeled("serial-to-broker", errors.New("write: broken pipe"))
	errs.AddLabeled("mqtt", nil)
	errs.AddLabeled("broker-to-serial", errors.New("read: file already closed"))

	err := errs.Aggregate()
	require.Error(t, err)
	require.Equal(t,
		"serial-to-broker: write: broken pipe; broker-to-serial: read: file already closed",
		err.Error())
}

func TestAggregatedErrorAdd(t *testing.T) {
	var errs AggregatedError
	errs.Add(errors.New("one"), nil, errors.New("two"))
	require.Equal(t, "one; two", errs.Aggregate().Error())
}
