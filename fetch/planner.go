// Package fetch implements the Fetch-Key Planner (spec §4.3): it
// normalizes the union of a batch's data requirements into a deduplicated,
// categorized set of FetchKeys.
package fetch

import (
	"sort"

	"github.com/HerodotusDev/hdp-sub002/primitives"
)

// CategorizedFetchKeys groups deduplicated fetch keys by kind, matching the
// five Provider operations in spec §4.5. Within a group, ordering is
// irrelevant (spec §4.3); each group is sorted by canonical key so that
// iteration order is stable.
type CategorizedFetchKeys struct {
	Headers  []primitives.HeaderKey
	Accounts []primitives.AccountKey
	Storages []primitives.StorageKey
	Txs      []primitives.TxKey
	Receipts []primitives.ReceiptKey
}

// Len returns the total number of distinct keys across all categories.
func (c CategorizedFetchKeys) Len() int {
	return len(c.Headers) + len(c.Accounts) + len(c.Storages) + len(c.Txs) + len(c.Receipts)
}

// planner accumulates keys keyed by their canonical string form to
// deduplicate by structural equality, per spec §4.3/§8 property 5.
type planner struct {
	seen     map[string]struct{}
	headers  map[string]primitives.HeaderKey
	accounts map[string]primitives.AccountKey
	storages map[string]primitives.StorageKey
	txs      map[string]primitives.TxKey
	receipts map[string]primitives.ReceiptKey
}

func newPlanner() *planner {
	return &planner{
		seen:     make(map[string]struct{}),
		headers:  make(map[string]primitives.HeaderKey),
		accounts: make(map[string]primitives.AccountKey),
		storages: make(map[string]primitives.StorageKey),
		txs:      make(map[string]primitives.TxKey),
		receipts: make(map[string]primitives.ReceiptKey),
	}
}

func (p *planner) addHeader(k primitives.HeaderKey) {
	key := k.Key()
	if _, ok := p.seen[key]; ok {
		return
	}
	p.seen[key] = struct{}{}
	p.headers[key] = k
}

func (p *planner) addAccount(k primitives.AccountKey) {
	key := k.Key()
	if _, ok := p.seen[key]; ok {
		return
	}
	p.seen[key] = struct{}{}
	p.accounts[key] = k
}

func (p *planner) addStorage(k primitives.StorageKey) {
	key := k.Key()
	if _, ok := p.seen[key]; ok {
		return
	}
	p.seen[key] = struct{}{}
	p.storages[key] = k
}

func (p *planner) addTx(k primitives.TxKey) {
	key := k.Key()
	if _, ok := p.seen[key]; ok {
		return
	}
	p.seen[key] = struct{}{}
	p.txs[key] = k
}

func (p *planner) addReceipt(k primitives.ReceiptKey) {
	key := k.Key()
	if _, ok := p.seen[key]; ok {
		return
	}
	p.seen[key] = struct{}{}
	p.receipts[key] = k
}

// AddFetchKey inserts an arbitrary fetch key (e.g. one emitted by the dry
// VM for a module task, spec §4.4) into the category matching its type.
func (p *planner) AddFetchKey(k primitives.FetchKey) {
	switch v := k.(type) {
	case primitives.HeaderKey:
		p.addHeader(v)
	case primitives.AccountKey:
		p.addAccount(v)
	case primitives.StorageKey:
		p.addStorage(v)
	case primitives.TxKey:
		p.addTx(v)
	case primitives.ReceiptKey:
		p.addReceipt(v)
	}
}

func (p *planner) finish() CategorizedFetchKeys {
	out := CategorizedFetchKeys{
		Headers:  make([]primitives.HeaderKey, 0, len(p.headers)),
		Accounts: make([]primitives.AccountKey, 0, len(p.accounts)),
		Storages: make([]primitives.StorageKey, 0, len(p.storages)),
		Txs:      make([]primitives.TxKey, 0, len(p.txs)),
		Receipts: make([]primitives.ReceiptKey, 0, len(p.receipts)),
	}
	for _, v := range p.headers {
		out.Headers = append(out.Headers, v)
	}
	for _, v := range p.accounts {
		out.Accounts = append(out.Accounts, v)
	}
	for _, v := range p.storages {
		out.Storages = append(out.Storages, v)
	}
	for _, v := range p.txs {
		out.Txs = append(out.Txs, v)
	}
	for _, v := range p.receipts {
		out.Receipts = append(out.Receipts, v)
	}
	sort.Slice(out.Headers, func(i, j int) bool { return out.Headers[i].Key() < out.Headers[j].Key() })
	sort.Slice(out.Accounts, func(i, j int) bool { return out.Accounts[i].Key() < out.Accounts[j].Key() })
	sort.Slice(out.Storages, func(i, j int) bool { return out.Storages[i].Key() < out.Storages[j].Key() })
	sort.Slice(out.Txs, func(i, j int) bool { return out.Txs[i].Key() < out.Txs[j].Key() })
	sort.Slice(out.Receipts, func(i, j int) bool { return out.Receipts[i].Key() < out.Receipts[j].Key() })
	return out
}

// PlanDatalake enumerates the fetch keys statically derivable from a single
// datalake descriptor, per spec §4.3.
func PlanDatalake(d primitives.Datalake) CategorizedFetchKeys {
	p := newPlanner()
	addDatalakeKeys(p, d)
	return p.finish()
}

// PlanBatch enumerates and deduplicates the fetch keys for every
// DatalakeCompute task in a batch, plus any extra keys supplied externally
// (typically the dry VM's emitted keys for module tasks, spec §4.4 step 4).
// Keys across the whole batch are deduplicated together, matching spec §8
// property 5 (the planner's dedup operates over the union of all tasks).
func PlanBatch(tasks []primitives.TaskEnvelope, extra []primitives.FetchKey) CategorizedFetchKeys {
	p := newPlanner()
	for _, t := range tasks {
		if dc, ok := t.(primitives.DatalakeCompute); ok {
			addDatalakeKeys(p, dc.Datalake)
		}
	}
	for _, k := range extra {
		p.AddFetchKey(k)
	}
	return p.finish()
}

func addDatalakeKeys(p *planner, d primitives.Datalake) {
	switch dl := d.(type) {
	case primitives.BlockSampledDatalake:
		addBlockSampledKeys(p, dl)
	case primitives.TransactionsInBlockDatalake:
		addTransactionsInBlockKeys(p, dl)
	}
}

func addBlockSampledKeys(p *planner, d primitives.BlockSampledDatalake) {
	chain := d.ChainId
	inc := d.Increment
	if inc == 0 {
		inc = 1
	}
	for block := d.BlockRangeStart; block <= d.BlockRangeEnd; block += inc {
		p.addHeader(primitives.HeaderKey{ChainId: chain, BlockNumber: block})
		switch d.SampledProperty.Kind {
		case primitives.PropertyAccount:
			p.addAccount(primitives.AccountKey{ChainId: chain, BlockNumber: block, Address: d.SampledProperty.Address})
		case primitives.PropertyStorage:
			p.addStorage(primitives.StorageKey{ChainId: chain, BlockNumber: block, Address: d.SampledProperty.Address, Slot: d.SampledProperty.Slot})
		}
	}
}

func addTransactionsInBlockKeys(p *planner, d primitives.TransactionsInBlockDatalake) {
	chain := d.ChainId
	p.addHeader(primitives.HeaderKey{ChainId: chain, BlockNumber: d.BlockNumber})
	inc := d.Increment
	if inc == 0 {
		inc = 1
	}
	for idx := d.StartIndex; idx <= d.EndIndex; idx += inc {
		switch d.SampledProperty.Kind {
		case primitives.PropertyReceipt:
			p.addReceipt(primitives.ReceiptKey{ChainId: chain, BlockNumber: d.BlockNumber, Index: idx})
		default:
			p.addTx(primitives.TxKey{ChainId: chain, BlockNumber: d.BlockNumber, Index: idx})
		}
	}
}
