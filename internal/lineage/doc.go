// Package lineage upserts lineage links into the metadata platform.
//
// Every match group is turned into a link and looked up by its idempotency
// key before anything is created, so running the same groups twice creates
// nothing the second time. A failure on one link is logged and counted; it
// never stops the remaining links.
//
// # Basic Usage
//
//	b := lineage.NewBuilder(client, logger)
//	outcomes := b.BuildTableLineage(ctx, tableGroups)
//	summary := core.Summarize(outcomes)
//	fmt.Printf("created=%d verified=%d failed=%d\n",
//	    summary.Created, summary.Verified, summary.Failed)
package lineage
