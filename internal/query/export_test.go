package query

// Bridge for the external test package.
func LedgerOf(s *Service) Ledger { return s.ledger }
