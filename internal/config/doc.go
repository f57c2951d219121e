// Package config loads and merges branchreview configuration from multiple
// sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (BRANCHREVIEW_PROVIDER, BRANCHREVIEW_MODEL, ...,
//     plus provider variables such as AZUREAI_ENDPOINT, AZUREAI_KEY,
//     AZUREAI_API_VERSION, OPENAI_API_KEY, GITHUB_TOKEN)
//  3. A .env file in the working directory, which never replaces variables
//     already set
//  4. Config file ($XDG_CONFIG_HOME/branchreview/config.toml)
//  5. Built-in defaults
//
// Credentials are read from the environment only and are never written to
// the config file. [Config.Validate] reports every missing or invalid value
// at once so a run fails before touching git or the network.
package config
