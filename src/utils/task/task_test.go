package task

import (
	"errors"
	"testing"
	"time"

	"github.com/ocean-market/marketd/src/utils/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestTaskTestSuite(t *testing.T) {
	suite.Run(t, new(TaskTestSuite))
}

type TaskTestSuite struct {
	suite.Suite
	config *config.Config
}

func (s *TaskTestSuite) SetupSuite() {
	s.config = config.Default()
}

func (s *TaskTestSuite) TestLifecycle() {
	started := make(chan struct{})
	task := NewTask(s.config, "test").
		WithSubtaskFunc(func() error {
			close(started)
			<-make(chan struct{})
			return nil
		})

	require.NoError(s.T(), task.Start())
	<-started

	// The subtask never returns, StopWait falls back to the timeout
	s.config.StopTimeout = 100 * time.Millisecond
	task.StopWait()
	require.True(s.T(), task.IsStopping.Load())
}

func (s *TaskTestSuite) TestStopChannelClosedOnStop() {
	done := make(chan struct{})
	var task *Task
	task = NewTask(s.config, "test").
		WithSubtaskFunc(func() error {
			<-task.StopChannel
			close(done)
			return nil
		})

	require.NoError(s.T(), task.Start())
	task.StopWait()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.T().Fatal("subtask did not observe the stop")
	}

	select {
	case <-task.CtxRunning.Done():
	case <-time.After(time.Second):
		s.T().Fatal("running context not cancelled")
	}
}

func (s *TaskTestSuite) TestSubtasksStopWithParent() {
	childStopped := make(chan struct{})
	child := NewTask(s.config, "child")
	child = child.WithSubtaskFunc(func() error {
		<-child.StopChannel
		close(childStopped)
		return nil
	})

	parent := NewTask(s.config, "parent").WithSubtask(child)

	require.NoError(s.T(), parent.Start())
	parent.StopWait()

	select {
	case <-childStopped:
	case <-time.After(time.Second):
		s.T().Fatal("child task did not stop with the parent")
	}
}

func (s *TaskTestSuite) TestRetrySucceedsAfterFailures() {
	calls := 0
	err := NewRetry().
		WithMaxInterval(10 * time.Millisecond).
		Run(func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

	require.NoError(s.T(), err)
	require.Equal(s.T(), 3, calls)
}

func (s *TaskTestSuite) TestRetryStopsOnPermanentError() {
	calls := 0
	permanent := errors.New("fatal")
	err := NewRetry().
		WithMaxInterval(10 * time.Millisecond).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			return backoff.Permanent(err)
		}).
		Run(func() error {
			calls++
			return permanent
		})

	require.ErrorIs(s.T(), err, permanent)
	require.Equal(s.T(), 1, calls)
}
