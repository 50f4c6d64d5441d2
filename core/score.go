package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/leadscore/core/algo"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/outwriter"
	"github.com/huangsam/leadscore/schema"
)

// ExecutorFunc defines the function signature for executing the scoring commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// ExecuteScoring reads contacts from the configured input, scores them against
// every selected framework and prints the ranked results.
func ExecuteScoring(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()

	contacts, err := LoadContacts(cfg.InputFile)
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		return errors.New("no contacts found in input")
	}

	if cfg.Output != schema.TextOut {
		ctx = withSuppressHeader(ctx)
	}
	if !shouldSuppressHeader(ctx) {
		printScoringHeader(cfg, len(contacts))
	}

	engine := NewEngine(WithWorkers(cfg.Workers))
	svc := NewConfigService(mgr.GetConfigStore(), cfg.FrameworkConfigs)

	batches := make([]schema.BatchResult, 0, len(cfg.Frameworks))
	for _, fw := range cfg.Frameworks {
		fc, err := svc.Load(ctx, cfg.Tenant, fw)
		if err != nil {
			return err
		}
		batch, err := RunBatch(ctx, engine, mgr.GetResultStore(), cfg.Tenant, contacts, fc)
		if err != nil {
			return err
		}
		if batch.Canceled {
			contract.LogWarn("Scoring canceled before every contact finished", ctx.Err())
		}
		if err := batch.Err(); err != nil {
			contract.LogWarn(fmt.Sprintf("%d contact(s) could not be scored with %s", len(batch.Failed), fw), err)
		}
		batch.Results = algo.RankResults(batch.Results, 0)
		batches = append(batches, batch)
	}

	return outwriter.PrintScoreResults(batches, cfg, time.Since(start))
}

// RunBatch scores contacts against fc and records the run when a result
// store is configured. Recording failures are logged, never returned.
func RunBatch(ctx context.Context, engine *Engine, results contract.ResultStore, tenant string, contacts []schema.Contact, fc schema.FrameworkConfig) (schema.BatchResult, error) {
	start := engine.Now()
	batch, err := engine.ScoreAll(ctx, contacts, fc)
	if err != nil {
		return batch, err
	}
	if results == nil {
		return batch, nil
	}

	// --- Run Tracking ---
	if err := results.BeginRun(batch.RunID, tenant, fc.Framework, start, fc.Version); err != nil {
		contract.LogWarn("Scoring run tracking initialization failed", err)
		return batch, nil
	}
	for _, r := range batch.Results {
		if err := results.RecordScore(tenant, batch.RunID, r); err != nil {
			contract.LogWarn(fmt.Sprintf("Failed to record score for contact %s", r.ContactID), err)
		}
	}
	if err := results.EndRun(batch.RunID, engine.Now(), batch); err != nil {
		contract.LogWarn("Failed to finalize scoring run tracking", err)
	}
	return batch, nil
}

// LoadContacts reads contacts from a file, or stdin when path is "" or "-".
func LoadContacts(path string) ([]schema.Contact, error) {
	if path == "" || path == "-" {
		return ReadContacts(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()
	return ReadContacts(file)
}

// ReadContacts accepts a JSON array of contacts or newline-delimited JSON
// objects. A record is either {"id": ..., "enrichment": {...}} or a flat
// enrichment object carrying its own "id" or "contact_id".
func ReadContacts(r io.Reader) ([]schema.Contact, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}

	var records []json.RawMessage
	dec := json.NewDecoder(br)
	if first == '[' {
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to parse contacts array: %w", err)
		}
	} else {
		for {
			var rec json.RawMessage
			err := dec.Decode(&rec)
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to parse contact %d: %w", len(records)+1, err)
			}
			records = append(records, rec)
		}
	}

	contacts := make([]schema.Contact, 0, len(records))
	for _, rec := range records {
		contacts = append(contacts, contactFromRecord(rec))
	}
	return contacts, nil
}

// contactFromRecord never fails: a record that is not an object is kept as
// the enrichment so the engine reports it as that contact's failure.
func contactFromRecord(rec json.RawMessage) schema.Contact {
	var envelope struct {
		ID         json.RawMessage `json:"id"`
		ContactID  json.RawMessage `json:"contact_id"`
		Enrichment json.RawMessage `json:"enrichment"`
	}
	if err := json.Unmarshal(rec, &envelope); err != nil {
		return schema.Contact{Enrichment: rec}
	}
	id := rawID(envelope.ID)
	if id == "" {
		id = rawID(envelope.ContactID)
	}
	if len(envelope.Enrichment) > 0 {
		return schema.Contact{ID: id, Enrichment: envelope.Enrichment}
	}
	return schema.Contact{ID: id, Enrichment: rec}
}

// rawID reads a string or numeric id.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// printScoringHeader prints the tenant and frameworks being scored.
func printScoringHeader(cfg *contract.Config, contacts int) {
	fmt.Printf("🎯 Tenant: %s (Frameworks: %v)\n", cfg.Tenant, cfg.Frameworks)
	fmt.Printf("👥 Contacts: %d (Workers: %d)\n", contacts, cfg.Workers)
}
