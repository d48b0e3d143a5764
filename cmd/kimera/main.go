package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kimera-swm/go-core/internal/config"
	"github.com/kimera-swm/go-core/internal/contradiction"
	"github.com/kimera-swm/go-core/internal/geoid"
	"github.com/kimera-swm/go-core/internal/logging"
	"github.com/kimera-swm/go-core/internal/optimizer"
	"github.com/kimera-swm/go-core/internal/scar"
	"github.com/kimera-swm/go-core/internal/store"
	"github.com/kimera-swm/go-core/internal/vault"
)

// #region main
func main() {
	cfg, err := config.Load(envOr("KIMERA_CONFIG", "kimera.yaml"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	var scarStore store.ScarStore = sqlStore
	if cfg.Store.Cached {
		scarStore = store.NewCachedStore(sqlStore, store.CachedConfig{
			StatsTTL:      cfg.Store.StatsTTL(),
			StatsRefresh:  cfg.Store.StatsRefresh(),
			BatchSize:     cfg.Store.BatchSize,
			BatchInterval: cfg.Store.BatchInterval(),
		})
	}
	defer scarStore.Close()

	if err := logging.EnsureSchema(sqlStore.DB()); err != nil {
		log.Fatalf("decision log schema: %v", err)
	}

	manager := vault.NewManager(vault.Config{
		Capacity:           cfg.Vault.Capacity,
		FractureThreshold:  cfg.Vault.FractureThreshold,
		ImbalanceThreshold: cfg.Vault.ImbalanceThreshold,
	}, nil, scarStore)
	if err := manager.Hydrate(); err != nil {
		log.Fatalf("hydrate vaults: %v", err)
	}

	engine := contradiction.NewEngine(contradiction.EngineConfig{
		TensionThreshold: cfg.Engine.TensionThreshold,
	}, nil, nil)

	var mergePolicy optimizer.MergePolicy
	if cfg.Optimizer.MergeAngleGap > 0 {
		mergePolicy = optimizer.AngleMergePolicy{MaxAngleGap: cfg.Optimizer.MergeAngleGap}
	}
	opt := optimizer.New(optimizer.Config{
		DecayLambda:    cfg.Optimizer.DecayLambda,
		PruneThreshold: cfg.Optimizer.PruneThreshold,
	}, manager, scarStore, mergePolicy)

	session := &session{
		manager:   manager,
		engine:    engine,
		optimizer: opt,
		logDB:     sqlStore,
		geoids:    make(map[string]*geoid.GeoidState),
		stability: map[string]float64{
			"axis_convergence":                0.5,
			"vault_resonance":                 0.5,
			"contradiction_lineage_ambiguity": 0.5,
		},
		imbalanceThreshold: cfg.Vault.ImbalanceThreshold,
	}

	fmt.Println("KIMERA vault core ready.")
	fmt.Printf("  DB: %s | vault A: %d | vault B: %d\n",
		cfg.Store.Path, manager.TotalScarCount(scar.VaultA), manager.TotalScarCount(scar.VaultB))
	fmt.Println("Commands: geoid, list, detect, status, stability, rebalance, optimize, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		session.dispatch(line)
	}
}

// #endregion main

// #region session

type session struct {
	manager            *vault.Manager
	engine             *contradiction.Engine
	optimizer          *optimizer.Optimizer
	logDB              *store.SQLiteStore
	geoids             map[string]*geoid.GeoidState
	order              []string
	stability          map[string]float64
	imbalanceThreshold float64
}

func (s *session) dispatch(line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "geoid":
		s.cmdGeoid(fields[1:])
	case "list":
		s.cmdList()
	case "detect":
		s.cmdDetect()
	case "status":
		s.cmdStatus()
	case "stability":
		s.cmdStability(fields[1:])
	case "rebalance":
		byWeight := len(fields) > 1 && fields[1] == "weight"
		moved := s.manager.Rebalance(byWeight, s.imbalanceThreshold)
		fmt.Printf("moved %d scars\n", moved)
	case "optimize":
		report, err := s.optimizer.RunCycle(time.Now().UTC())
		if err != nil {
			fmt.Printf("optimize error: %v\n", err)
			return
		}
		fmt.Printf("decayed=%d pruned=%d merged=%d\n", report.Decayed, report.Pruned, report.Merged)
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
}

// cmdGeoid adds a geoid to the working set:
//
//	geoid <id> feat=val ... [@angle=30 @polarity=-0.6 @mutation=0.2]
//
// Plain pairs become semantic features; @-pairs become scar routing
// metadata for scars formed against this geoid.
func (s *session) cmdGeoid(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: geoid <id> feat=val [feat=val ...] [@angle=N @polarity=N @mutation=N]")
		return
	}
	id := args[0]
	features := make(map[string]float64)
	metadata := make(map[string]any)
	for _, pair := range args[1:] {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			fmt.Printf("skipping malformed pair %q\n", pair)
			continue
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fmt.Printf("skipping non-numeric pair %q\n", pair)
			continue
		}
		if meta, found := strings.CutPrefix(key, "@"); found {
			metadata[meta] = val
		} else {
			features[key] = val
		}
	}
	if len(features) == 0 {
		fmt.Println("geoid needs at least one semantic feature")
		return
	}

	g := geoid.New(features, nil, metadata)
	g.GeoidID = id
	if _, exists := s.geoids[id]; !exists {
		s.order = append(s.order, id)
	}
	s.geoids[id] = g
	fmt.Printf("geoid %s: %d features, entropy %.4f bits\n", id, len(g.SemanticState), g.Entropy())
}

func (s *session) cmdList() {
	if len(s.order) == 0 {
		fmt.Println("no geoids in working set")
		return
	}
	for _, id := range s.order {
		g := s.geoids[id]
		fmt.Printf("  %-16s features=%d entropy=%.4f\n", id, len(g.SemanticState), g.Entropy())
	}
}

func (s *session) cmdStability(args []string) {
	if len(args) == 0 {
		for k, v := range s.stability {
			fmt.Printf("  %s = %.2f\n", k, v)
		}
		return
	}
	if len(args) != 2 {
		fmt.Println("usage: stability [<metric> <value>]")
		return
	}
	val, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		fmt.Printf("bad value %q\n", args[1])
		return
	}
	s.stability[args[0]] = val
}

// cmdDetect runs one detection cycle over the working set. Collapses
// form scars and route them into the vaults; every verdict lands in the
// decision log.
func (s *session) cmdDetect() {
	geoids := make([]*geoid.GeoidState, 0, len(s.order))
	for _, id := range s.order {
		geoids = append(geoids, s.geoids[id])
	}
	gradients := s.engine.DetectTensionGradients(geoids)
	if len(gradients) == 0 {
		fmt.Println("no tension above threshold")
		return
	}

	for _, t := range gradients {
		pulse := s.engine.CalculatePulseStrength(t, s.geoids)
		decision := contradiction.DecideCollapseOrSurge(pulse, s.stability)

		entry := logging.DecisionEntry{
			GeoidA:        t.GeoidA,
			GeoidB:        t.GeoidB,
			TensionScore:  t.TensionScore,
			GradientType:  string(t.GradientType),
			PulseStrength: pulse,
			Decision:      string(decision),
		}

		if decision == contradiction.DecisionCollapse {
			rec := s.formScar(t, pulse)
			res, err := s.manager.InsertScar(rec)
			if err != nil {
				fmt.Printf("insert scar: %v\n", err)
				continue
			}
			entry.ScarID = rec.ScarID
			entry.Reason = string(res.Outcome)
			fmt.Printf("  %s/%s tension=%.3f pulse=%.3f -> collapse (%s, %s)\n",
				t.GeoidA, t.GeoidB, t.TensionScore, pulse, res.VaultID, res.Outcome)
		} else {
			fmt.Printf("  %s/%s tension=%.3f pulse=%.3f -> %s\n",
				t.GeoidA, t.GeoidB, t.TensionScore, pulse, decision)
		}

		if err := logging.LogDecision(s.logDB.DB(), entry); err != nil {
			log.Printf("logging error: %v", err)
		}
	}
}

func (s *session) formScar(t contradiction.TensionGradient, pulse float64) *scar.ScarRecord {
	a, b := s.geoids[t.GeoidA], s.geoids[t.GeoidB]
	rec := scar.New([]string{t.GeoidA, t.GeoidB}, string(t.GradientType), pulse)
	rec.PreEntropy = a.Entropy() + b.Entropy()
	rec.PostEntropy = rec.PreEntropy
	rec.CLSAngle = metaFloat(a, b, "angle")
	rec.SemanticPolarity = metaFloat(a, b, "polarity")
	rec.MutationFrequency = metaFloat(a, b, "mutation")
	return rec
}

func (s *session) cmdStatus() {
	for _, id := range []scar.VaultID{scar.VaultA, scar.VaultB} {
		fmt.Printf("  %-10s count=%d weight=%.3f\n",
			id, s.manager.TotalScarCount(id), s.manager.TotalScarWeight(id))
	}
	fmt.Printf("  fallback   count=%d\n", len(s.manager.FallbackQueue()))
	if imbalanced, heavier, _ := s.manager.DetectImbalance(false, s.imbalanceThreshold); imbalanced {
		fmt.Printf("  imbalance: %s is over threshold\n", heavier)
	}
}

// #endregion session

// #region helpers

// metaFloat averages a numeric metadata key across the pair; geoids
// without the key contribute nothing.
func metaFloat(a, b *geoid.GeoidState, key string) float64 {
	var sum float64
	var n int
	for _, g := range []*geoid.GeoidState{a, b} {
		if g == nil {
			continue
		}
		if v, ok := g.Metadata[key].(float64); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
