// Package integrations implements the outbound collaborator contracts
// used by integration nodes: generic HTTP calls and parameterized
// relational queries. File and email operations have no transport here;
// their nodes acknowledge and pass through.
package integrations
