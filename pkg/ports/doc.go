/*
Package ports defines the driven ports (interfaces) of the variant configurator.

These interfaces decouple the wizard and the resolution engine from the catalog
backend, the session persistence and the event bus, so each can be substituted by
a test double.

# Key Interfaces

  - Catalog: the catalog backend (templates, attributes, canonical values, variants).
  - Configurator: the search/init/prepare/create operations consumed by the wizard.
  - SessionStore: persists one session record per user.
  - DistributedLocker: serialises access to a user's session across replicas.
  - EventPublisher: announces committed variants.
*/
package ports
