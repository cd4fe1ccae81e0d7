package sqlgen

// scriptTemplate is the merge script. The column lists mirror the encounter
// table; new rows get fresh uuids and keep every other attribute.
const scriptTemplate = `{{define "count"}}SELECT COUNT(*)
    FROM individual i
             JOIN encounter e ON i.id = e.individual_id
    WHERE i.uuid IN ({{.IDs}})
      AND e.encounter_date_time IS NOT NULL;{{if .Known}} -- {{.N}}{{end}}{{end -}}
-- merge {{.PairCount}} pairs: {{.MergeCount}} individuals into {{.KeepCount}}
-- pairs fingerprint (xxh3): {{.Fingerprint}}

SET ROLE {{.Role}};

BEGIN TRANSACTION;

-- total number of encounters that need to be moved
{{template "count" count .MergeIn .Counts.Known .Counts.Affected}}

-- total number of encounters that need to be retained
{{template "count" count .KeepIn .Counts.Known .Counts.Retained}}

{{if .Counts.Known}}-- total updates should be {{.Counts.Affected}}{{else}}-- total updates should equal the first count above{{end}}

-- update query
WITH csv_data(individual_uuid, individual_uuid_to_merge_into) AS (
    VALUES
        {{.Values}}
),
mapped_data AS (
    SELECT
        ind.id AS individual_id,
        key_ind.id AS merge_into_id,
        ind.uuid AS individual_uuid,
        key_ind.uuid AS merge_into_uuid
    FROM csv_data
    LEFT JOIN individual ind ON ind.uuid = csv_data.individual_uuid
    LEFT JOIN individual key_ind ON key_ind.uuid = csv_data.individual_uuid_to_merge_into
)
INSERT INTO encounter (
    observations,
    encounter_date_time,
    encounter_type_id,
    individual_id,
    uuid,
    version,
    organisation_id,
    is_voided,
    audit_id,
    encounter_location,
    earliest_visit_date_time,
    max_visit_date_time,
    cancel_date_time,
    cancel_observations,
    cancel_location,
    name,
    legacy_id,
    created_by_id,
    last_modified_by_id,
    created_date_time,
    last_modified_date_time,
    address_id,
    sync_concept_1_value,
    sync_concept_2_value,
    manual_update_history,
    filled_by_id
)
SELECT
    e.observations,
    e.encounter_date_time,
    e.encounter_type_id,
    mapped_data.merge_into_id AS individual_id,
    uuid_generate_v4(),
    e.version,
    e.organisation_id,
    e.is_voided,
    e.audit_id,
    e.encounter_location,
    e.earliest_visit_date_time,
    e.max_visit_date_time,
    e.cancel_date_time,
    e.cancel_observations,
    e.cancel_location,
    e.name,
    e.legacy_id,
    e.created_by_id,
    (SELECT id FROM public.users WHERE username = {{.Username}}) AS last_modified_by_id,
    e.created_date_time,
    CURRENT_TIMESTAMP + (RANDOM() * 1000 * (INTERVAL '1 millisecond')) AS last_modified_date_time,
    e.address_id,
    e.sync_concept_1_value,
    e.sync_concept_2_value,
    append_manual_update_history(e.manual_update_history, {{.History}}),
    e.filled_by_id
FROM encounter e
INNER JOIN mapped_data
    ON e.individual_id = mapped_data.individual_id
WHERE e.encounter_date_time IS NOT NULL
  AND e.organisation_id = (SELECT id FROM organisation WHERE name = {{.Organisation}});{{if .Counts.Known}} -- {{.Counts.Affected}} rows affected{{end}}

-- Therefore total encounters after update:
{{if .Counts.Known}}select ({{.Counts.Affected}}*2) + {{.Counts.Retained}}; -- = {{.After}}{{else}}-- (first count * 2) + second count{{end}}

-- total number of encounters after the update
{{template "count" count .AllIn .Counts.Known .After}}

-- COMMIT;

ROLLBACK;
`
