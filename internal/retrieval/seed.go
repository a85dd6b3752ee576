package retrieval

// seedDocuments is the fixed illustrative knowledge set loaded into an
// empty corpus. Base relevance values are hand-assigned; a real index
// would compute similarity against the query instead.
var seedDocuments = []Document{
	{
		ID:        "doc-rag-overview",
		Source:    "handbook/rag-overview.md",
		Title:     "Retrieval-Augmented Generation",
		Body:      "Retrieval-augmented generation (RAG) grounds model replies in retrieved evidence. A retriever selects relevant passages from a corpus, the context packer places them alongside the user request, and the generator cites them rather than inventing facts.",
		URL:       "https://docs.parley.dev/handbook/rag-overview",
		Relevance: 0.92,
	},
	{
		ID:        "doc-context-windows",
		Source:    "handbook/context-windows.md",
		Title:     "Context Windows and Token Budgets",
		Body:      "A context window is the bounded set of text fragments sent to the model. Each fragment carries an estimated token cost; the packer keeps the total under budget by admitting only the highest-ranked evidence.",
		URL:       "https://docs.parley.dev/handbook/context-windows",
		Relevance: 0.87,
	},
	{
		ID:        "doc-dedup-ranking",
		Source:    "handbook/dedup-ranking.md",
		Title:     "Deduplication and Ranking of Evidence",
		Body:      "Retrieval results often contain near-duplicates from mirrored sources. Deduplicating on a normalized title-or-source key before ranking keeps the context window diverse, and rank-position penalties reflect diminishing returns among similar passages.",
		URL:       "https://docs.parley.dev/handbook/dedup-ranking",
		Relevance: 0.81,
	},
	{
		ID:        "doc-protocol-timeline",
		Source:    "handbook/protocol-timeline.md",
		Title:     "Auditable Protocol Timelines",
		Body:      "Every stage of a turn — plan, route, retrieve, pack, generate — is recorded as an append-only protocol step with its actor, inputs, and outputs. Observers can replay exactly how a reply was produced, including fallbacks.",
		URL:       "https://docs.parley.dev/handbook/protocol-timeline",
		Relevance: 0.74,
	},
	{
		ID:        "doc-backend-fallback",
		Source:    "handbook/backend-fallback.md",
		Title:     "Backend Fallback and Local Simulation",
		Body:      "When the remote generation backend times out or is unreachable, the pipeline degrades to a deterministic local simulator instead of failing the turn. The audit trail records the failure; the user still receives a reply.",
		URL:       "https://docs.parley.dev/handbook/backend-fallback",
		Relevance: 0.69,
	},
	{
		ID:        "doc-chunking",
		Source:    "handbook/chunking.md",
		Title:     "Chunking Strategies for Corpora",
		Body:      "Splitting documents into retrieval-sized chunks trades recall against precision. Overlapping windows preserve sentence boundaries; very small chunks rank well individually but starve the generator of surrounding context.",
		URL:       "https://docs.parley.dev/handbook/chunking",
		Relevance: 0.58,
	},
	{
		ID:        "doc-agent-personas",
		Source:    "handbook/agent-personas.md",
		Title:     "Agent Personas",
		Body:      "A persona frames how a reply is presented: planners lead with structure, researchers lead with evidence, writers lead with synthesis. The persona never changes which evidence is used, only its framing.",
		URL:       "https://docs.parley.dev/handbook/agent-personas",
		Relevance: 0.51,
	},
}
