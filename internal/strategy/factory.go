package strategy

import (
	"github.com/fentz26/interleave/internal/config"
	"github.com/fentz26/interleave/internal/prng"
	"github.com/fentz26/interleave/internal/trace"
)

// NewOperationStrategy builds the operation-selection strategy named by
// kind. An empty or unrecognized kind falls back to Random, mirroring
// config.Config.OperationStrategy's documented default behavior.
func NewOperationStrategy(kind string, cfg *config.Config, rnd *prng.Source, replayTrace *trace.Trace) OperationStrategy {
	switch kind {
	case "probabilistic":
		return NewProbabilisticRandom(rnd, cfg.MaxFairSchedulingSteps, 100)
	case "pct":
		return NewPCT(rnd, cfg.MaxUnfairSchedulingSteps, cfg.StrategyBound, false)
	case "fairpct":
		return NewPCT(rnd, cfg.MaxUnfairSchedulingSteps, cfg.StrategyBound, true)
	case "replay":
		tr := replayTrace
		if tr == nil {
			tr = trace.New()
		}
		return NewReplay(tr)
	case "random", "":
		return NewRandom(rnd, cfg.MaxFairSchedulingSteps)
	default:
		return NewRandom(rnd, cfg.MaxFairSchedulingSteps)
	}
}

// NewDelayStrategy builds the delay-injection strategy named by kind. An
// empty kind disables delay injection entirely (returns nil), matching
// config.Config.DelayStrategy's documented meaning; any other
// unrecognized kind falls back to Random. When cfg.LivenessThreshold is
// positive, the built strategy is wrapped with a liveness check (a no-op
// wrap for unfair strategies — see WrapLiveness).
func NewDelayStrategy(kind string, cfg *config.Config, rnd *prng.Source) DelayStrategy {
	ds := buildDelayStrategy(kind, cfg, rnd)
	if ds == nil || cfg.LivenessThreshold <= 0 {
		return ds
	}
	return WrapLiveness(ds, NewTemperatureChecker(cfg.LivenessThreshold))
}

func buildDelayStrategy(kind string, cfg *config.Config, rnd *prng.Source) DelayStrategy {
	switch kind {
	case "":
		return nil
	case "lowdelay":
		return NewLowDelayPercentage(rnd, cfg.MaxFairSchedulingSteps)
	case "cointoss":
		return NewCoinToss(rnd, cfg.MaxFairSchedulingSteps)
	case "torchrandom":
		return NewTorchRandom(rnd, cfg.MaxFairSchedulingSteps)
	case "ppct":
		return NewPPCT(rnd, cfg.MaxFairSchedulingSteps)
	case "fairpct":
		return NewFairPCTDelay(rnd, cfg.MaxFairSchedulingSteps)
	case "onestoponego":
		return NewOneStopOneGo(rnd, cfg.MaxFairSchedulingSteps)
	case "rapidcontextswitch":
		return NewRapidContextSwitch(rnd)
	case "portfolio":
		return NewPortfolio(
			NewRandomDelay(rnd, cfg.MaxFairSchedulingSteps),
			NewLowDelayPercentage(rnd, cfg.MaxFairSchedulingSteps),
			NewCoinToss(rnd, cfg.MaxFairSchedulingSteps),
		)
	case "random":
		return NewRandomDelay(rnd, cfg.MaxFairSchedulingSteps)
	default:
		return NewRandomDelay(rnd, cfg.MaxFairSchedulingSteps)
	}
}
