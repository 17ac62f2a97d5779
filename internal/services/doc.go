// Package services implements the business logic layer of the scan agent.
//
// Services sit between the command line (or any other front end) and the
// store. They combine store operations that belong together and log what
// happened; they never talk to the network.
//
// # Service Dependency Graph
//
//	cmd/scan-agent
//	    │
//	    ▼
//	Services Layer
//	    └── ScanService ──► Store (Scans, History, Catalog)
//
// # ScanService
//
// Record(ctx, NewScan):
//
//	EnsureReady
//	    │
//	    ▼
//	Catalog().FindArticleByCode   (only when no article id was supplied)
//	    │  found     → article id + description copied onto the scan
//	    │  not found → recorded unmatched
//	    ▼
//	Scans().Create                (error returned)
//	    │
//	    ▼
//	History().Append              (error logged, scan still returned)
//
// ApplySyncResults(ctx, results):
//
// The remote submission flow answers every submitted scan with a success flag
// and either a remote id or field errors. Results with Success and a remote id
// become SyncAck pairs for one MarkSynced batch. Everything else is logged at
// warn level and returned in SyncOutcome.Rejected for the caller to present.
//
//	┌──────────────────────────────┬──────────────────────────────┐
//	│  Result                      │  Effect                      │
//	├──────────────────────────────┼──────────────────────────────┤
//	│  Success, RemoteID set       │  is_synced = 1, remote_id    │
//	│  Success, RemoteID empty     │  rejected                    │
//	│  !Success                    │  rejected, stays pending     │
//	│  unknown LocalID             │  skipped, no error           │
//	└──────────────────────────────┴──────────────────────────────┘
//
// EditDetails(ctx, update) updates the operator fields and returns the scan,
// which is unsynced again afterwards.
//
// List(ctx, filter) returns the page selected by the filter and the total
// number of matching scans without the limit.
//
// Usage:
//
//	scans := services.NewScanService(st)
//	rec, err := scans.Record(ctx, models.NewScan{CampaignID: "c1", CodeArticle: "X123"})
//	outcome, err := scans.ApplySyncResults(ctx, results)
package services
