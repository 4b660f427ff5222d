package sim_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/risk"
	"github.com/rustyeddy/gridtrader/sim"
)

const suiteRunID = "suite-run"

// SQLiteJournalSuite runs the engine against a real SQLite journal and reads
// the ledger back through the query API.
type SQLiteJournalSuite struct {
	suite.Suite

	db     *journal.SQLite
	engine *sim.Engine
	start  time.Time
}

func TestSQLiteJournalSuite(t *testing.T) {
	suite.Run(t, new(SQLiteJournalSuite))
}

func (s *SQLiteJournalSuite) SetupTest() {
	db, err := journal.NewSQLite(filepath.Join(s.T().TempDir(), "journal.db"))
	s.Require().NoError(err)
	s.db = db

	s.start = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	s.engine = sim.NewEngine(sim.Config{
		StartingBalance: 10000,
		Costs:           sim.CostModel{FeePct: 0.001, SlippagePct: 0.001},
		Sizing:          risk.Policy{Mode: risk.Fixed, FixedAmount: 10},
	}, sim.WithJournal(db), sim.WithRunID(suiteRunID))
}

func (s *SQLiteJournalSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func (s *SQLiteJournalSuite) at(min int) time.Time {
	return s.start.Add(time.Duration(min) * time.Minute)
}

func (s *SQLiteJournalSuite) process(evs ...sim.Event) {
	for _, ev := range evs {
		s.Require().NoError(s.engine.ProcessSignal(ev))
	}
}

func (s *SQLiteJournalSuite) TestTakeProfitPersisted() {
	s.process(
		sim.Open(s.at(0), "BTCUSDT", sim.Long, 100, sim.WithTakeProfit(105), sim.WithStopLoss(95)),
		sim.PriceUpdate(s.at(1), "BTCUSDT", 102),
		sim.PriceUpdate(s.at(2), "BTCUSDT", 106),
	)

	trades, err := s.db.ListTradesByRunID(s.T().Context(), suiteRunID)
	s.Require().NoError(err)
	s.Require().Len(trades, 1)

	tr := trades[0]
	s.Equal("BTCUSDT", tr.Symbol)
	s.Equal("LONG", tr.Direction)
	s.Equal(sim.ReasonTakeProfit, tr.Reason)
	s.InDelta(105.0, tr.ExitPrice, 1e-9)
	s.InDelta(0.459, tr.RealizedPL, 1e-9)
	s.InDelta(10000.459, tr.BalanceAfter, 1e-9)
	s.True(tr.CloseTime.Equal(s.at(2)))

	stored, err := s.db.GetTrade(tr.TradeID)
	s.Require().NoError(err)
	s.Equal(tr.TradeID, stored.TradeID)

	eq, err := s.db.ListEquityByRunID(s.T().Context(), suiteRunID)
	s.Require().NoError(err)
	s.Require().Len(eq, 3)
	s.Equal(1, eq[0].OpenPositions)
	s.InDelta(9990.0, eq[0].Available, 1e-9)
	s.Equal(0, eq[2].OpenPositions)
	s.InDelta(10000.459, eq[2].Balance, 1e-9)
}

func (s *SQLiteJournalSuite) TestStopLossPersisted() {
	s.process(
		sim.Open(s.at(0), "ETHUSDT", sim.Short, 200, sim.WithTakeProfit(190), sim.WithStopLoss(210)),
		sim.PriceUpdate(s.at(1), "ETHUSDT", 209),
		sim.PriceUpdate(s.at(2), "ETHUSDT", 211),
	)

	trades, err := s.db.ListTradesClosedBetween(s.at(0), s.at(3))
	s.Require().NoError(err)
	s.Require().Len(trades, 1)
	s.Equal(sim.ReasonStopLoss, trades[0].Reason)
	s.InDelta(210.0, trades[0].ExitPrice, 1e-9)
	s.InDelta(-0.541, trades[0].RealizedPL, 1e-9)
}

func (s *SQLiteJournalSuite) TestCloseAllPersisted() {
	s.process(
		sim.Open(s.at(0), "ETHUSDT", sim.Long, 200),
		sim.Open(s.at(0), "BTCUSDT", sim.Short, 100),
	)
	s.Require().NoError(s.engine.CloseAll(s.at(5), 150))

	trades, err := s.db.ListTradesByRunID(s.T().Context(), suiteRunID)
	s.Require().NoError(err)
	s.Require().Len(trades, 2)
	for _, tr := range trades {
		s.Equal(sim.ReasonEndOfRun, tr.Reason)
		s.InDelta(150.0, tr.ExitPrice, 1e-9)
	}

	eq, err := s.db.ListEquityByRunID(s.T().Context(), suiteRunID)
	s.Require().NoError(err)
	s.Require().Len(eq, 3)
	s.Equal(0, eq[2].OpenPositions)
	s.InDelta(s.engine.Balance(), eq[2].Balance, 1e-9)
}
