package flows

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Verify        VerifyDeps
	RedeemLink    RedeemLinkDeps
	IssueSession  IssueSessionDeps
	IssueLinkCode IssueLinkCodeDeps
}
