package config

type AppConfig struct {
	Server     ServerConfig
	Log        LogConfig
	X402       X402Config
	Tournament TournamentConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	x402Cfg, err := LoadX402()
	if err != nil {
		return AppConfig{}, err
	}
	tournamentCfg, err := LoadTournament()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:     serverCfg,
		Log:        logCfg,
		X402:       x402Cfg,
		Tournament: tournamentCfg,
	}, nil
}
