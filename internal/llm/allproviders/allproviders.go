// Package allproviders imports all LLM providers to register them.
// Import this package if you want all providers to be available:
//
//	import _ "github.com/orcabase/orca/internal/llm/allproviders"
package allproviders

import (
	_ "github.com/orcabase/orca/internal/llm/providers/anthropic"
	_ "github.com/orcabase/orca/internal/llm/providers/bearer"
	_ "github.com/orcabase/orca/internal/llm/providers/bedrock"
	_ "github.com/orcabase/orca/internal/llm/providers/gemini"
	_ "github.com/orcabase/orca/internal/llm/providers/huggingface"
	_ "github.com/orcabase/orca/internal/llm/providers/openai"
)
