package engagement

import "time"

// Rules 是战斗规则参数，全部来自配置（conf.yml 的 battle 段），显式随 Context 传入。
type Rules struct {
	// Multiplayer 多人模式不维护预计增援列表
	Multiplayer bool `mapstructure:"multiplayer"`
	// RebelAIEnabled 关闭时叛军不会主动开战或加入战斗
	RebelAIEnabled bool `mapstructure:"rebel_ai_enabled"`

	// PreparationFormula 备战时长（秒），变量 stronger/weaker/attackers/defenders 为兵力
	PreparationFormula string        `mapstructure:"preparation_formula"`
	FinishingDelay     time.Duration `mapstructure:"finishing_delay"`
	HealInterval       time.Duration `mapstructure:"heal_interval"`
	PreparationHeal    float64       `mapstructure:"preparation_heal"`

	PlunderDuration    time.Duration `mapstructure:"plunder_duration"`
	PlunderResumeMod   float64       `mapstructure:"plunder_resume_mod"`
	PlunderResumeDelay time.Duration `mapstructure:"plunder_resume_delay"`

	OwnRealmBonus         float64 `mapstructure:"own_realm_bonus"`
	OwnRealmMajorityBonus float64 `mapstructure:"own_realm_majority_bonus"`
	NonKeepFactor         float64 `mapstructure:"non_keep_factor"`
	LevyResilienceBonus   float64 `mapstructure:"levy_resilience_bonus"`
	ResilienceDecay       float64 `mapstructure:"resilience_decay"`
	SiegeDefenseDecay     float64 `mapstructure:"siege_defense_decay"`
	SiegeDefenseRecovery  float64 `mapstructure:"siege_defense_recovery"`
	GateAssaultChance     float64 `mapstructure:"gate_assault_chance"`

	ReinforcementRadius     float64 `mapstructure:"reinforcement_radius"`
	ReinforcementMultiplier float64 `mapstructure:"reinforcement_multiplier"`

	RetreatAttackerFraction float64 `mapstructure:"retreat_attacker_fraction"`
	RetreatDamage           float64 `mapstructure:"retreat_damage"`

	BattleSupplyCost     float64            `mapstructure:"battle_supply_cost"`
	HealFraction         float64            `mapstructure:"heal_fraction"`
	HealFractionLoser    float64            `mapstructure:"heal_fraction_loser"`
	MaxSurvivableDamage  float64            `mapstructure:"max_survivable_damage"`
	CaptureChanceWiped   map[string]float64 `mapstructure:"capture_chance_wiped"`
	CaptureChanceRetreat map[string]float64 `mapstructure:"capture_chance_retreat"`
	EscapeChance         float64            `mapstructure:"escape_chance"`
	EscapeRadius         float64            `mapstructure:"escape_radius"`

	MoraleRadius       float64 `mapstructure:"morale_radius"`
	MoraleWin          float64 `mapstructure:"morale_win"`
	MoraleLose         float64 `mapstructure:"morale_lose"`
	MoraleNeutral      float64 `mapstructure:"morale_neutral"`
	TownCapturedMorale float64 `mapstructure:"town_captured_morale"`
	MaxMorale          float64 `mapstructure:"max_morale"`

	ExpBase        float64 `mapstructure:"exp_base"`
	ExpGainSpeed   float64 `mapstructure:"exp_gain_speed"`
	ExpPerSquadMod float64 `mapstructure:"exp_per_squad_mod"`

	AllyJoinBonus      float64 `mapstructure:"ally_join_bonus"`
	NeutralJoinBonus   float64 `mapstructure:"neutral_join_bonus"`
	HelpedEnemyPenalty float64 `mapstructure:"helped_enemy_penalty"`

	FieldBattleRelation float64 `mapstructure:"field_battle_relation"`
	SiegeRelation       float64 `mapstructure:"siege_relation"`
	PillageRelation     float64 `mapstructure:"pillage_relation"`
	FieldBattleScore    float64 `mapstructure:"field_battle_score"`
	SiegeScore          float64 `mapstructure:"siege_score"`
	PillageScore        float64 `mapstructure:"pillage_score"`
	ImprisonScore       float64 `mapstructure:"imprison_score"`
	CrusadeScore        float64 `mapstructure:"crusade_score"`
	AnnexOnCapture      bool    `mapstructure:"annex_on_capture"`

	PlunderGoldFactor  float64 `mapstructure:"plunder_gold_factor"`
	PlunderFoodFactor  float64 `mapstructure:"plunder_food_factor"`
	PlunderBooksFactor float64 `mapstructure:"plunder_books_factor"`
	PlunderBonusGold   float64 `mapstructure:"plunder_bonus_gold"`
	PlunderPrimaryCut  float64 `mapstructure:"plunder_primary_cut"`
}

const DefaultPreparationFormula = "min(60.0, 10.0 + 40.0 * weaker / max(stronger, 1.0))"

func DefaultRules() Rules {
	return Rules{
		RebelAIEnabled:     true,
		PreparationFormula: DefaultPreparationFormula,
		FinishingDelay:     5 * time.Second,
		HealInterval:       10 * time.Second,
		PreparationHeal:    0.05,

		PlunderDuration:    60 * time.Second,
		PlunderResumeMod:   0.5,
		PlunderResumeDelay: 3 * time.Second,

		OwnRealmBonus:         0.25,
		OwnRealmMajorityBonus: 0.5,
		NonKeepFactor:         0.6,
		LevyResilienceBonus:   20,
		ResilienceDecay:       0.5,
		SiegeDefenseDecay:     0.25,
		SiegeDefenseRecovery:  0.1,
		GateAssaultChance:     0.15,

		ReinforcementRadius:     30,
		ReinforcementMultiplier: 1,

		RetreatAttackerFraction: 0.3,
		RetreatDamage:           0.1,

		BattleSupplyCost:    5,
		HealFraction:        0.5,
		HealFractionLoser:   0.25,
		MaxSurvivableDamage: 0.9,
		CaptureChanceWiped:  map[string]float64{"knight": 0.5, "marshal": 0.4, "king": 0.3},
		CaptureChanceRetreat: map[string]float64{
			"knight": 0.15, "marshal": 0.1, "king": 0.05,
		},
		EscapeChance: 0.5,
		EscapeRadius: 40,

		MoraleRadius:       25,
		MoraleWin:          10,
		MoraleLose:         -10,
		MoraleNeutral:      0,
		TownCapturedMorale: -5,
		MaxMorale:          100,

		ExpBase:        1,
		ExpGainSpeed:   10,
		ExpPerSquadMod: 0.05,

		AllyJoinBonus:      5,
		NeutralJoinBonus:   2,
		HelpedEnemyPenalty: -5,

		FieldBattleRelation: -2,
		SiegeRelation:       -4,
		PillageRelation:     -3,
		FieldBattleScore:    1,
		SiegeScore:          3,
		PillageScore:        1,
		ImprisonScore:       2,
		CrusadeScore:        5,

		PlunderGoldFactor:  0.5,
		PlunderFoodFactor:  0.5,
		PlunderBooksFactor: 0.25,
		PlunderBonusGold:   10,
		PlunderPrimaryCut:  0.7,
	}
}
