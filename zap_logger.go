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

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ZapAdapter wires a *zap.SugaredLogger into ContextLeveledLogger, the
// production logging path for this package. Assign it to CommonConfig.Logger.
type ZapAdapter struct {
	sugared *zap.SugaredLogger
}

// NewZapAdapter wraps l for use as this package's logger.
func NewZapAdapter(l *zap.Logger) *ZapAdapter {
	return &ZapAdapter{sugared: l.Sugar()}
}

func (z *ZapAdapter) Info(ctx context.Context, v ...interface{}) {
	z.sugared.Info(fmt.Sprint(v...))
}

func (z *ZapAdapter) Error(ctx context.Context, v ...interface{}) {
	z.sugared.Error(fmt.Sprint(v...))
}
