package engagement

// Update 每个全局 tick 调用一次。
// 顺序：完整性检查 → 清理预计增援 → （Ongoing）刷新强攻可行性 → 权威节点推进阶段。
func (e *Engagement) Update() {
	if e.destroyed || e.stage == StageFinished {
		return
	}
	if e.CheckBroken() {
		return
	}
	e.gcIntendedReinforcements()
	if e.stage == StageOngoing {
		e.refreshAssaultAvailability()
	}
	if !e.ctx.Authority {
		return
	}

	now := e.now()
	e.timers.Fire(now)
	if e.destroyed {
		return
	}

	switch e.stage {
	case StagePreparing:
		if now-e.stageStartedAt >= e.prepDuration {
			if e.presentation.active && !e.presentation.loaded {
				e.setStage(StageEnteringBattle, 0)
			} else {
				e.setStage(StageOngoing, 0)
			}
		}
	case StageEnteringBattle:
		if !e.presentation.active || e.presentation.loaded {
			e.setStage(StageOngoing, 0)
		}
	case StageOngoing:
		if e.sim != nil {
			e.sim.Step(now)
			e.squads = e.sim.Squads()
		}
		e.CheckReinforcementTimers()
		if e.stage == StageOngoing {
			e.CheckVictory()
		}
	case StageFinishing:
		if now-e.stageStartedAt >= e.ctx.Rules.FinishingDelay {
			e.setStage(StageFinished, 0)
		}
	}
}
