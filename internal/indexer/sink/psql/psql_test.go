package psql

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/ory/dockertest"
	"github.com/ory/dockertest/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/protocolindex/projectsink/internal/indexer"
	"github.com/protocolindex/projectsink/internal/indexer/project"
	"github.com/protocolindex/projectsink/internal/stakewatch"
	"github.com/protocolindex/projectsink/internal/test/factory"
	pslog "github.com/protocolindex/projectsink/libs/log"
	"github.com/protocolindex/projectsink/types"
)

var (
	doPauseAtExit = flag.Bool("pause-at-exit", false,
		"If true, pause the test until interrupted at shutdown, to allow debugging")

	// A hook that test cases can call to obtain the shared database instance
	// used for testing the sink. This is initialized in TestMain (see below).
	testDB func() *sql.DB

	// The connection string of the shared database, for listeners.
	testConn string
)

const (
	user     = "postgres"
	password = "secret"
	port     = "5432"
	dsn      = "postgres://%s:%s@localhost:%s/%s?sslmode=disable"
	dbName   = "postgres"
)

func TestMain(m *testing.M) {
	flag.Parse()

	// Set up docker and start a container running PostgreSQL.
	pool, err := dockertest.NewPool(os.Getenv("DOCKER_URL"))
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		log.Printf("Docker is not available, skipping database tests: %v", err)
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "13",
		Env: []string{
			"POSTGRES_USER=" + user,
			"POSTGRES_PASSWORD=" + password,
			"POSTGRES_DB=" + dbName,
			"listen_addresses = '*'",
		},
		ExposedPorts: []string{port},
	}, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		log.Fatalf("Starting docker pool: %v", err)
	}

	if *doPauseAtExit {
		log.Print("Pause at exit is enabled, containers will not expire")
	} else {
		const expireSeconds = 60
		_ = resource.Expire(expireSeconds)
		log.Printf("Container expiration set to %d seconds", expireSeconds)
	}

	// Connect to the database, clear any leftover data, and install the
	// indexing schema.
	conn := fmt.Sprintf(dsn, user, password, resource.GetPort(port+"/tcp"), dbName)
	var db *sql.DB

	if err := pool.Retry(func() error {
		sink, err := NewSink(SinkArgs{ConnString: conn})
		if err != nil {
			return err
		}
		db = sink.DB() // set global for test use
		return db.Ping()
	}); err != nil {
		log.Fatalf("Connecting to database: %v", err)
	}

	if err := resetDatabase(db); err != nil {
		log.Fatalf("Flushing database: %v", err)
	}

	if err := InitSchema(context.Background(), db); err != nil {
		log.Fatalf("Applying schema: %v", err)
	}

	// Set up the hooks for tests to get the shared database handle.
	testDB = func() *sql.DB { return db }
	testConn = conn

	// Run the selected test cases.
	code := m.Run()

	// Clean up and shut down the database container.
	if *doPauseAtExit {
		log.Print("Testing complete, pausing for inspection. Send SIGINT to resume teardown")
		waitForInterrupt()
		log.Print("(resuming)")
	}
	log.Print("Shutting down database")
	if err := pool.Purge(resource); err != nil {
		log.Printf("WARNING: Purging pool failed: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("WARNING: Closing database failed: %v", err)
	}

	os.Exit(code)
}

// requireDB returns the shared database, skipping the test when Docker is
// not available.
func requireDB(t *testing.T) *sql.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("database not available")
	}
	return testDB()
}

func newTestSink(t *testing.T) (*Sink, *stakewatch.Registry) {
	registry := stakewatch.NewRegistry(dbm.NewMemDB(), pslog.TestingLogger())
	return NewSinkFromDB(requireDB(t), SinkArgs{
		Registry:        registry,
		RefreshInterval: 10 * time.Millisecond,
		Logger:          pslog.TestingLogger(),
	}), registry
}

func projectTx(id byte, outputID int64, status project.ProjectStatus) *types.Tx {
	d := &project.ProjectDatum{
		ProjectID: []byte{0xca, 0xfe, id},
		Owner: types.Address{
			Payment: types.Credential{Kind: types.ScriptCredential, Hash: types.Hash28{id}},
		},
		Status:           status,
		MilestoneReached: 3,
	}
	return &types.Tx{
		ID: []byte{0x70, id},
		Outputs: []types.Output{{
			ID:    outputID,
			Datum: factory.ProjectDatum(d),
		}},
	}
}

func decodeProject(out indexer.Output) (indexer.Row, bool) {
	row, err := project.ProjectDecoder(types.Mainnet)(out)
	return row, err == nil
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()

	require.NoError(t, InitSchema(ctx, db))
	require.NoError(t, InitSchema(ctx, db))

	rows, err := db.Query(`
SELECT enumlabel FROM pg_enum
  JOIN pg_type ON pg_type.oid = pg_enum.enumtypid
  WHERE pg_type.typname = 'project_status'
  ORDER BY enumsortorder;
`)
	require.NoError(t, err)
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		require.NoError(t, rows.Scan(&label))
		labels = append(labels, label)
	}
	require.NoError(t, rows.Err())

	var want []string
	for _, kind := range project.StatusKinds {
		want = append(want, string(kind))
	}
	assert.Equal(t, want, labels)

	for _, index := range []string{
		"project_project_id_idx",
		"project_status_idx",
		"project_detail_project_id_idx",
		"project_detail_information_cid_idx",
		"project_script_project_id_idx",
		"project_summary_project_id_idx",
	} {
		var found string
		err := db.QueryRow(`SELECT indexname FROM pg_indexes WHERE indexname = $1`, index).Scan(&found)
		assert.NoError(t, err, "index %s", index)
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	sink, _ := newTestSink(t)

	closedAt := time.UnixMilli(1_650_000_000_000).UTC()
	tx := projectTx(1, 1001, project.Closed{ClosedAt: closedAt})
	require.NoError(t, sink.EnsureOutputs(ctx, tx))

	rows, err := sink.Store(ctx, tx, []int{0}, decodeProject)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Attempting to store the same rows again should gracefully succeed.
	_, err = sink.Store(ctx, tx, []int{0}, decodeProject)
	require.NoError(t, err)

	var (
		count      int
		status     string
		statusTime time.Time
		milestone  int
	)
	require.NoError(t, sink.DB().QueryRow(`
SELECT count(*) FROM project WHERE id = $1;
`, 1001).Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, sink.DB().QueryRow(`
SELECT status, status_time, milestone_reached FROM project WHERE id = $1;
`, 1001).Scan(&status, &statusTime, &milestone))
	assert.Equal(t, string(project.StatusClosed), status)
	assert.True(t, closedAt.Equal(statusTime))
	assert.Equal(t, 3, milestone)

	// Nothing to store is not an error.
	rows, err = sink.Store(ctx, tx, nil, decodeProject)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStoreDetailAmounts(t *testing.T) {
	ctx := context.Background()
	sink, _ := newTestSink(t)

	huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	d := &project.DetailDatum{
		ProjectID:      []byte{0xca, 0xfe, 0x02},
		WithdrawnFunds: huge,
		InformationCid: "bafkreiinformation",
	}
	tx := &types.Tx{
		ID:      []byte{0x71},
		Outputs: []types.Output{{ID: 1002, Datum: factory.DetailDatum(d)}},
	}
	require.NoError(t, sink.EnsureOutputs(ctx, tx))

	_, err := sink.Store(ctx, tx, []int{0}, func(out indexer.Output) (indexer.Row, bool) {
		row, err := project.DecodeDetail(out)
		return row, err == nil
	})
	require.NoError(t, err)

	var (
		funds       string
		sponsorship sql.NullString
	)
	require.NoError(t, sink.DB().QueryRow(`
SELECT withdrawn_funds, sponsorship_amount FROM project_detail WHERE id = $1;
`, 1002).Scan(&funds, &sponsorship))
	assert.Equal(t, huge.String(), funds)
	assert.False(t, sponsorship.Valid)
}

func TestStoreRequiresOutput(t *testing.T) {
	sink, _ := newTestSink(t)

	tx := projectTx(3, 1003, project.Active{})
	_, err := sink.Store(context.Background(), tx, []int{0}, decodeProject)
	require.Error(t, err)

	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr))
	assert.Equal(t, "foreign_key_violation", pqErr.Code.Name())
}

func TestNotify(t *testing.T) {
	sink, _ := newTestSink(t)

	listener := pq.NewListener(testConn, 10*time.Millisecond, time.Second, nil)
	defer listener.Close()
	require.NoError(t, listener.Listen(string(indexer.TopicAnnouncementChanged)))

	require.NoError(t, sink.Notify(context.Background(), indexer.TopicAnnouncementChanged))

	select {
	case n := <-listener.Notify:
		require.NotNil(t, n)
		assert.Equal(t, string(indexer.TopicAnnouncementChanged), n.Channel)
	case <-time.After(5 * time.Second):
		t.Fatal("notification not received")
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	sink, _ := newTestSink(t)

	assert.ErrorIs(t, sink.Refresh(ctx, indexer.View("nope")), ErrUnknownView)

	tx := projectTx(4, 1004, project.PreDelisted{PendingUntil: time.UnixMilli(42).UTC()})
	require.NoError(t, sink.EnsureOutputs(ctx, tx))
	_, err := sink.Store(ctx, tx, []int{0}, decodeProject)
	require.NoError(t, err)

	require.NoError(t, sink.Refresh(ctx, indexer.ViewProjectSummary))
	require.NoError(t, sink.Refresh(ctx, indexer.ViewProjectSummary))
	assert.Equal(t, []indexer.View{indexer.ViewProjectSummary}, sink.Refresher().Pending())

	require.NoError(t, sink.Refresher().Flush(ctx))
	assert.Empty(t, sink.Refresher().Pending())

	var status string
	require.NoError(t, sink.DB().QueryRow(`
SELECT status FROM project_summary WHERE project_id = $1;
`, "cafe04").Scan(&status))
	assert.Equal(t, string(project.StatusPreDelisted), status)
}

func TestRefresherRunsInBackground(t *testing.T) {
	db := requireDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRefresher(db, time.Millisecond, pslog.TestingLogger())
	require.NoError(t, r.Start(ctx))
	defer func() { require.NoError(t, r.Stop()) }()

	r.Request(indexer.ViewProjectSummary)
	require.Eventually(t, func() bool { return len(r.Pending()) == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatch(t *testing.T) {
	ctx := context.Background()
	sink, registry := newTestSink(t)

	hash := types.Hash28{0xee}
	require.NoError(t, sink.Watch(ctx, hash, stakewatch.KindScript))
	ok, err := registry.IsWatched(hash, stakewatch.KindScript)
	require.NoError(t, err)
	assert.True(t, ok)

	bare := NewSinkFromDB(requireDB(t), SinkArgs{})
	assert.ErrorIs(t, bare.Watch(ctx, hash, stakewatch.KindScript), ErrNoRegistry)
}

// resetDatabase drops all the data from the test database.
func resetDatabase(db *sql.DB) error {
	_, err := db.Exec(`DROP MATERIALIZED VIEW IF EXISTS project_summary CASCADE;`)
	if err != nil {
		return fmt.Errorf("dropping views: %v", err)
	}
	_, err = db.Exec(`DROP TABLE IF EXISTS project,project_detail,project_script,chain_output,` +
		MigrationsTable + ` CASCADE;`)
	if err != nil {
		return fmt.Errorf("dropping tables: %v", err)
	}
	_, err = db.Exec(`DROP TYPE IF EXISTS project_status;`)
	if err != nil {
		return fmt.Errorf("dropping types: %v", err)
	}
	return nil
}

// waitForInterrupt blocks until a SIGINT is received by the process.
func waitForInterrupt() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	<-ch
}
