package oauth

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eidcard/internal/social"
)

// Stage 表示一次连接尝试所处的阶段
type Stage string

const (
	StageInitiated        Stage = "initiated"
	StageCallbackReceived Stage = "callback_received"
	StageTokenExchanged   Stage = "token_exchanged"
	StageUserinfoFetched  Stage = "userinfo_fetched"
	StageReconciled       Stage = "reconciled"
	StageFailed           Stage = "failed"
)

// nextStage 列出每个阶段唯一允许的下一阶段
var nextStage = map[Stage]Stage{
	StageInitiated:        StageCallbackReceived,
	StageCallbackReceived: StageTokenExchanged,
	StageTokenExchanged:   StageUserinfoFetched,
	StageUserinfoFetched:  StageReconciled,
}

// Attempt 记录一次 OAuth 连接从跳转到对账完成的过程
type Attempt struct {
	ID        string
	Platform  social.Platform
	Provider  social.Provider
	Stage     Stage
	Err       error
	StartedAt time.Time
}

func newAttempt(id string, platform social.Platform, provider social.Provider) *Attempt {
	if id == "" {
		id = uuid.NewString()
	}
	return &Attempt{
		ID:        id,
		Platform:  platform,
		Provider:  provider,
		Stage:     StageInitiated,
		StartedAt: time.Now(),
	}
}

func (a *Attempt) advance(to Stage) error {
	if want, ok := nextStage[a.Stage]; !ok || want != to {
		return fmt.Errorf("oauth attempt %s: cannot move from %s to %s", a.ID, a.Stage, to)
	}
	a.Stage = to
	return nil
}

// Fail 将尝试置为失败终态并原样返回 err
func (a *Attempt) Fail(err error) error {
	if a.Stage != StageReconciled {
		a.Stage = StageFailed
		a.Err = err
	}
	return err
}

// MarkReconciled 在链接写入后结束尝试
func (a *Attempt) MarkReconciled() error {
	return a.advance(StageReconciled)
}
