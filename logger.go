/*
Copyright 2021 U. Cirello (cirello.io and github.com/cirello-io)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package distlock

import "context"

// Logger is the simplest logging interface this package accepts: a
// sink for unleveled, printf-free lines. Satisfied trivially by
// *log.Logger.
type Logger interface {
	Println(v ...interface{})
}

// LeveledLogger distinguishes informational lines from error lines, for
// loggers that support it.
type LeveledLogger interface {
	Info(v ...interface{})
	Error(v ...interface{})
}

// ContextLeveledLogger is a LeveledLogger that also accepts the
// operation's context, for loggers that attach request-scoped fields
// (trace id, deadline) to every line.
type ContextLeveledLogger interface {
	Info(ctx context.Context, v ...interface{})
	Error(ctx context.Context, v ...interface{})
}

// discardLogger is the default logger: it drops everything. Both
// lockers use it unless CommonConfig.Logger is set.
type discardLogger struct{}

func (discardLogger) Info(ctx context.Context, v ...interface{})  {}
func (discardLogger) Error(ctx context.Context, v ...interface{}) {}

// plainLoggerAdapter lifts a Logger into a ContextLeveledLogger,
// dropping the context and treating every line as informational.
type plainLoggerAdapter struct{ logger Logger }

// NewPlainLoggerAdapter lifts logger, such as a *log.Logger, into the
// ContextLeveledLogger this package's configs accept.
func NewPlainLoggerAdapter(logger Logger) ContextLeveledLogger {
	return &plainLoggerAdapter{logger: logger}
}

func (a *plainLoggerAdapter) Info(ctx context.Context, v ...interface{}) {
	a.logger.Println(v...)
}

func (a *plainLoggerAdapter) Error(ctx context.Context, v ...interface{}) {
	a.logger.Println(v...)
}

// leveledLoggerAdapter lifts a LeveledLogger into a ContextLeveledLogger,
// dropping the context.
type leveledLoggerAdapter struct{ logger LeveledLogger }

// NewLeveledLoggerAdapter lifts logger into the ContextLeveledLogger this
// package's configs accept.
func NewLeveledLoggerAdapter(logger LeveledLogger) ContextLeveledLogger {
	return &leveledLoggerAdapter{logger: logger}
}

func (a *leveledLoggerAdapter) Info(ctx context.Context, v ...interface{}) {
	a.logger.Info(v...)
}

func (a *leveledLoggerAdapter) Error(ctx context.Context, v ...interface{}) {
	a.logger.Error(v...)
}
