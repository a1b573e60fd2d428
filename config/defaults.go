package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/lexio",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Backend: BackendConfig{
			URL:          "http://localhost:8000",
			DefaultModel: "gpt-4o-mini",
		},
		UseRAG: true,
	}
}

func GenerateSystemConfigTemplate() string {
	return `# Lexio System Configuration
# Location: ~/.config/lexio/settings.toml
# This file uses TOML format: https://toml.io

# Directory where conversations, markers and user config are stored
data_directory = "~/.local/share/lexio"
`
}

func GenerateUserConfigTemplate() string {
	return `# Lexio User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[backend]
# Practice backend base URL
url = "http://localhost:8000"

# Default model sent with assistant queries and quick actions
default_model = "gpt-4o-mini"

# Default matter to scope queries to (optional)
# Example: "matter-1042"
default_matter = ""

# Default system prompt for assistant queries (optional)
default_system_prompt = ""

# Ground answers in the matter's documents via retrieval
use_rag = true
`
}
