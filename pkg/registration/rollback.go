// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package registration

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jeremyhahn/go-passkey/pkg/storage"
)

// ceremonyStep records how far a ceremony progressed before a failure, so
// one dispatcher can undo exactly the state that exists instead of each
// failure site carrying its own cleanup block.
type ceremonyStep int

const (
	// stepUserCreated: the account row exists.
	stepUserCreated ceremonyStep = iota

	// stepChallengeStored: the account row exists and a challenge may be
	// live.
	stepChallengeStored
)

// compensate undoes the committed state for a failed ceremony, in reverse
// order. It runs to completion before the failure response is returned;
// undo errors are logged, not propagated, since the original failure is
// what the caller needs to see.
func (o *Orchestrator) compensate(ctx context.Context, step ceremonyStep, uid string) {
	switch step {
	case stepChallengeStored:
		if err := o.challenges.Delete(ctx, uid); err != nil {
			o.logger.Error("rollback: delete challenge",
				slog.String("uid", uid),
				slog.String("error", err.Error()))
		}
		fallthrough
	case stepUserCreated:
		if err := o.users.DeleteUser(ctx, uid); err != nil && !errors.Is(err, storage.ErrUserNotFound) {
			o.logger.Error("rollback: delete user",
				slog.String("uid", uid),
				slog.String("error", err.Error()))
		}
	}
}
